package usecase

import (
	"context"
	"fmt"
	"time"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// CurrencyConverter converts amounts between currencies through the rate table.
type CurrencyConverter struct {
	rates RateProvider
}

// NewCurrencyConverter creates a converter backed by rates.
func NewCurrencyConverter(rates RateProvider) *CurrencyConverter {
	return &CurrencyConverter{rates: rates}
}

// Convert converts amount from one currency to another using the rates valid
// on date. The result is rounded once, to the target currency precision.
func (c *CurrencyConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency, date time.Time) (decimal.Decimal, error) {
	if from.Is(to) {
		return amount, nil
	}

	fromRate, err := c.rates.RateAt(ctx, from.Code, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not get rate for %s: %w", from.Code, err)
	}
	toRate, err := c.rates.RateAt(ctx, to.Code, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not get rate for %s: %w", to.Code, err)
	}
	if fromRate.IsZero() {
		return decimal.Zero, domain.NewDomainError(domain.ErrorRateNotFound, from.Code, "zero rate")
	}

	return to.Round(amount.Mul(toRate).Div(fromRate)), nil
}

// AccountingAmounts expresses the transaction in transaction, journal and
// company currency. The company amount only goes through the rate table when
// neither the journal nor the foreign currency is the company currency.
func (c *CurrencyConverter) AccountingAmounts(ctx context.Context, tx domain.Transaction) (domain.AccountingAmounts, error) {
	company := tx.Journal.Company.Currency
	journal := tx.Journal.EffectiveCurrency()
	transaction := tx.TransactionCurrency()

	amounts := domain.AccountingAmounts{
		TransactionAmount:   tx.Amount,
		TransactionCurrency: transaction,
		JournalAmount:       tx.Amount,
		JournalCurrency:     journal,
		CompanyCurrency:     company,
	}
	if !transaction.Is(journal) {
		amounts.TransactionAmount = tx.AmountCurrency
	}

	switch {
	case journal.Is(company):
		amounts.CompanyAmount = tx.Amount
	case transaction.Is(company):
		amounts.CompanyAmount = amounts.TransactionAmount
	default:
		converted, err := c.Convert(ctx, tx.Amount, journal, company, tx.Date)
		if err != nil {
			return domain.AccountingAmounts{}, err
		}
		amounts.CompanyAmount = converted
	}

	return amounts, nil
}

// UsingTransactionRate returns a converter bound to the rate the bank quoted
// for the transaction, derived from its declared amounts instead of the
// public rate table.
func (c *CurrencyConverter) UsingTransactionRate(amounts domain.AccountingAmounts) TransactionRate {
	return TransactionRate{amounts: amounts}
}

// TransactionRate converts between the transaction, journal and company
// currencies with the ratios of the transaction's declared amounts.
type TransactionRate struct {
	amounts domain.AccountingAmounts
}

// Balance converts amount expressed in currency into company currency. The
// boolean is false when currency is unrelated to the transaction.
func (r TransactionRate) Balance(currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, bool) {
	a := r.amounts
	switch {
	case currency.Is(a.CompanyCurrency):
		return a.CompanyCurrency.Round(amount), true
	case currency.Is(a.TransactionCurrency):
		return scale(amount, a.CompanyAmount, a.TransactionAmount, a.CompanyCurrency), true
	case currency.Is(a.JournalCurrency):
		return scale(amount, a.CompanyAmount, a.JournalAmount, a.CompanyCurrency), true
	}
	return decimal.Zero, false
}

// AmountIn converts a company-currency balance into currency. The boolean is
// false when currency is unrelated to the transaction.
func (r TransactionRate) AmountIn(currency domain.Currency, balance decimal.Decimal) (decimal.Decimal, bool) {
	a := r.amounts
	switch {
	case currency.Is(a.CompanyCurrency):
		return a.CompanyCurrency.Round(balance), true
	case currency.Is(a.TransactionCurrency):
		return scale(balance, a.TransactionAmount, a.CompanyAmount, a.TransactionCurrency), true
	case currency.Is(a.JournalCurrency):
		return scale(balance, a.JournalAmount, a.CompanyAmount, a.JournalCurrency), true
	}
	return decimal.Zero, false
}

// JournalToTransaction converts a journal-currency amount into transaction currency.
func (r TransactionRate) JournalToTransaction(amount decimal.Decimal) decimal.Decimal {
	a := r.amounts
	return scale(amount, a.TransactionAmount, a.JournalAmount, a.TransactionCurrency)
}

// scale returns round(amount * |num| / |den|) in cur, or zero when den is zero.
func scale(amount, num, den decimal.Decimal, cur domain.Currency) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return cur.Round(amount.Mul(num.Abs()).Div(den.Abs()))
}
