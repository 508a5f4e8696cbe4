package domain

import "github.com/shopspring/decimal"

// TaxUse is the direction a tax applies to.
type TaxUse string

const (
	TaxUseSale     TaxUse = "sale"
	TaxUsePurchase TaxUse = "purchase"
	TaxUseNone     TaxUse = "none"
)

// TaxAmountType tells how a tax amount is derived from its base.
type TaxAmountType string

const (
	TaxAmountPercent TaxAmountType = "percent"
	TaxAmountFixed   TaxAmountType = "fixed"
)

// Tax is a tax rule consumed by the tax evaluator.
type Tax struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AmountType   TaxAmountType   `json:"amount_type"`
	Amount       decimal.Decimal `json:"amount"`
	Use          TaxUse          `json:"use"`
	PriceInclude bool            `json:"price_include"`
	Account      Account         `json:"account"`

	InvoiceTags     []string `json:"invoice_tags,omitempty"`
	RefundTags      []string `json:"refund_tags,omitempty"`
	BaseInvoiceTags []string `json:"base_invoice_tags,omitempty"`
	BaseRefundTags  []string `json:"base_refund_tags,omitempty"`
}

// TaxRepartition links a tax line back to the tax that produced it.
type TaxRepartition struct {
	TaxID       string `json:"tax_id"`
	GroupingKey string `json:"grouping_key"`
}

// TaxBaseInput is a base line handed to the tax evaluator.
type TaxBaseInput struct {
	LineIndex     int
	Currency      Currency
	Account       Account
	Partner       *Partner
	Taxes         []Tax
	PriceUnit     decimal.Decimal
	PriceIncluded bool
	IsRefund      bool
}

// TaxLineInput is an existing tax line handed to the tax evaluator.
type TaxLineInput struct {
	LineIndex        int
	Repartition      TaxRepartition
	Account          Account
	Currency         Currency
	AmountInCurrency decimal.Decimal
	TaxTags          []string
}

// TaxEvaluationRequest groups the base and tax lines of a working set.
type TaxEvaluationRequest struct {
	BaseLines []TaxBaseInput
	TaxLines  []TaxLineInput
}

// TaxBaseUpdate is the recomputed subtotal and tags of a base line.
type TaxBaseUpdate struct {
	LineIndex        int
	AmountInCurrency decimal.Decimal
	TaxTags          []string
}

// TaxLineProposal describes a tax line to create.
type TaxLineProposal struct {
	Name             string
	Repartition      TaxRepartition
	Account          Account
	Partner          *Partner
	Currency         Currency
	AmountInCurrency decimal.Decimal
	TaxTags          []string
}

// TaxLineUpdate is the recomputed amount and tags of an existing tax line.
type TaxLineUpdate struct {
	LineIndex        int
	AmountInCurrency decimal.Decimal
	TaxTags          []string
}

// TaxEvaluation is the evaluator output, split in buckets.
type TaxEvaluation struct {
	BaseLinesToUpdate []TaxBaseUpdate
	TaxLinesToDelete  []int
	TaxLinesToCreate  []TaxLineProposal
	TaxLinesToUpdate  []TaxLineUpdate
}

// IsRefundFor tells whether a base line with taxes and balance is a refund:
// a debit on sale taxes or a credit on purchase taxes.
func IsRefundFor(taxes []Tax, balance decimal.Decimal) bool {
	if len(taxes) == 0 {
		return false
	}
	switch taxes[0].Use {
	case TaxUseSale:
		return balance.IsPositive()
	case TaxUsePurchase:
		return balance.IsNegative()
	}
	return false
}
