package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType tells how a reconcile model is used.
type RuleType string

const (
	RuleTypeWriteOffButton     RuleType = "writeoff_button"
	RuleTypeWriteOffSuggestion RuleType = "writeoff_suggestion"
	RuleTypeInvoiceMatching    RuleType = "invoice_matching"
)

// RuleAmountType tells how a write-off line amount is computed.
type RuleAmountType string

const (
	RuleAmountFixed            RuleAmountType = "fixed"
	RuleAmountPercentage       RuleAmountType = "percentage"
	RuleAmountPercentageStLine RuleAmountType = "percentage_st_line"
)

// ReconcileModel is a configurable reconciliation rule.
type ReconcileModel struct {
	ID            string
	Name          string
	Sequence      int
	RuleType      RuleType
	AutoReconcile bool
	ToCheck       bool

	// Matching conditions.
	JournalIDs   []string
	MatchLabel   string // substring looked up in the payment reference
	MatchPartner bool
	MatchNature  string // "amount_received", "amount_paid" or "both"

	Lines []ReconcileModelLine
}

// ReconcileModelLine proposes one write-off line.
type ReconcileModelLine struct {
	Label                string
	Account              Account
	AmountType           RuleAmountType
	Amount               decimal.Decimal
	Taxes                []Tax
	ForceTaxIncluded     bool
	AnalyticDistribution map[string]decimal.Decimal
}

// AppliesTo reports whether the model's conditions accept the transaction.
func (m ReconcileModel) AppliesTo(tx Transaction) bool {
	if len(m.JournalIDs) > 0 {
		found := false
		for _, id := range m.JournalIDs {
			if id == tx.Journal.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch m.MatchNature {
	case "amount_received":
		if !tx.Amount.IsPositive() {
			return false
		}
	case "amount_paid":
		if !tx.Amount.IsNegative() {
			return false
		}
	}
	if m.MatchPartner && tx.Partner == nil {
		return false
	}
	if m.MatchLabel != "" && !strings.Contains(strings.ToLower(tx.PaymentRef), strings.ToLower(m.MatchLabel)) {
		return false
	}
	return true
}

// WriteOffProposal is a line proposed by a reconcile model.
type WriteOffProposal struct {
	Name                 string
	Account              Account
	Partner              *Partner
	Currency             Currency
	AmountInCurrency     decimal.Decimal
	Taxes                []Tax
	ForcePriceIncluded   bool
	AnalyticDistribution map[string]decimal.Decimal
}

// MatchResult is the outcome of the matching-rule evaluator for a transaction.
type MatchResult struct {
	Candidates    []SourceEntry
	Rule          *ReconcileModel
	AutoReconcile bool
}

// EarlyPaymentKind classifies the lines produced by an early-payment split.
type EarlyPaymentKind string

const (
	EarlyPaymentDiscount EarlyPaymentKind = "discount"
	EarlyPaymentTax      EarlyPaymentKind = "tax"
	EarlyPaymentExchange EarlyPaymentKind = "exchange"
)

// EarlyPaymentEntry is a source entry paid with an early-payment discount.
type EarlyPaymentEntry struct {
	Entry            SourceEntry
	AmountInCurrency decimal.Decimal
	Balance          decimal.Decimal
}

// EarlyPaymentRequest asks for the discount breakdown covering the open amounts.
type EarlyPaymentRequest struct {
	Currency             Currency
	Company              Company
	Date                 time.Time
	Partner              *Partner
	Entries              []EarlyPaymentEntry
	OpenAmountInCurrency decimal.Decimal
	OpenBalance          decimal.Decimal
}

// EarlyPaymentLine is one discount, tax or exchange-difference line.
type EarlyPaymentLine struct {
	Kind             EarlyPaymentKind
	SourceEntryID    string
	Name             string
	Account          Account
	Partner          *Partner
	Currency         Currency
	AmountInCurrency decimal.Decimal
	Balance          decimal.Decimal
	Taxes            []Tax
	TaxTags          []string
	TaxRepartition   *TaxRepartition
}
