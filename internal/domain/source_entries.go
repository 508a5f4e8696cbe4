package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceEntry is an open ledger entry (typically an invoice receivable or
// payable line) that can be matched against a transaction.
type SourceEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Partner  *Partner `json:"partner,omitempty"`
	Account  Account  `json:"account"`
	Currency Currency `json:"currency"`

	AmountCurrency         decimal.Decimal `json:"amount_currency"`
	Balance                decimal.Decimal `json:"balance"`
	AmountResidualCurrency decimal.Decimal `json:"amount_residual_currency"`
	AmountResidual         decimal.Decimal `json:"amount_residual"`

	Date         time.Time          `json:"date"`
	DueDate      time.Time          `json:"due_date"`
	EarlyPayment *EarlyPaymentTerms `json:"early_payment,omitempty"`
	Reconciled   bool               `json:"reconciled"`
}

// EarlyPaymentTerms describes the discount granted when paying before DiscountDate.
type EarlyPaymentTerms struct {
	DiscountDate time.Time `json:"discount_date"`
	// Amount due, in the entry currency, once the discount is granted.
	DiscountedAmountCurrency decimal.Decimal `json:"discounted_amount_currency"`
	// Invoice lines the discount is split across, proportionally to their amount.
	Shares []DiscountShare `json:"shares,omitempty"`
}

// DiscountShare is one invoice line weighting the split of an early-payment discount.
type DiscountShare struct {
	Name             string          `json:"name"`
	Account          Account         `json:"account"`
	AmountInCurrency decimal.Decimal `json:"amount_in_currency"`
	Taxes            []Tax           `json:"taxes,omitempty"`
	TaxRepartition   *TaxRepartition `json:"tax_repartition,omitempty"`
}

// IsPartiallyPaid reports whether some of the entry was already settled.
func (e SourceEntry) IsPartiallyPaid() bool {
	return !e.AmountResidualCurrency.Equal(e.AmountCurrency)
}

// EligibleForEarlyPayment reports whether the discount applies to a payment
// in currency made on date.
func (e SourceEntry) EligibleForEarlyPayment(currency Currency, date time.Time) bool {
	if e.EarlyPayment == nil || e.Reconciled || e.IsPartiallyPaid() {
		return false
	}
	if !e.Currency.Is(currency) {
		return false
	}
	return !date.After(e.EarlyPayment.DiscountDate)
}

// EarlyPaymentDiscount is the discount amount in the entry currency, signed like the entry.
func (e SourceEntry) EarlyPaymentDiscount() decimal.Decimal {
	if e.EarlyPayment == nil {
		return decimal.Zero
	}
	return e.AmountCurrency.Sub(e.EarlyPayment.DiscountedAmountCurrency)
}
