package gateway

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// EarlyPaymentSplitter books early-payment discounts. Each entry's discount is
// spread over its invoice lines pro rata; a tax share lands on its tax
// account, any other share on the company's early-payment gain or loss
// account. A rounding gap between the discount balances and the open balance
// becomes an exchange difference line.
type EarlyPaymentSplitter struct{}

// NewEarlyPaymentSplitter creates a splitter.
func NewEarlyPaymentSplitter() *EarlyPaymentSplitter {
	return &EarlyPaymentSplitter{}
}

// EvaluateEarlyPaymentSplit returns the discount, tax and exchange lines
// covering req.OpenAmountInCurrency.
func (e *EarlyPaymentSplitter) EvaluateEarlyPaymentSplit(ctx context.Context, req domain.EarlyPaymentRequest) ([]domain.EarlyPaymentLine, error) {
	company := req.Company.Currency
	var lines []domain.EarlyPaymentLine

	toBalance := func(amount decimal.Decimal) decimal.Decimal {
		if req.OpenAmountInCurrency.IsZero() {
			return decimal.Zero
		}
		return company.Round(amount.Mul(req.OpenBalance).Div(req.OpenAmountInCurrency))
	}

	for _, entry := range req.Entries {
		discount := entry.Entry.EarlyPaymentDiscount()
		if req.Currency.IsZero(discount) {
			continue
		}
		discountAccount := req.Company.EarlyPaymentLossAccount
		if discount.IsNegative() {
			discountAccount = req.Company.EarlyPaymentGainAccount
		}
		if !discountAccount.IsSet() {
			return nil, domain.NewDomainError(domain.ErrorInvalidInput, "early_payment_account",
				fmt.Sprintf("company %s has no early payment account", req.Company.ID))
		}

		name := fmt.Sprintf("Early payment discount: %s", entry.Entry.Name)
		shares := entry.Entry.EarlyPayment.Shares
		if len(shares) == 0 {
			lines = append(lines, domain.EarlyPaymentLine{
				Kind:             domain.EarlyPaymentDiscount,
				SourceEntryID:    entry.Entry.ID,
				Name:             name,
				Account:          discountAccount,
				Partner:          req.Partner,
				Currency:         req.Currency,
				AmountInCurrency: discount,
				Balance:          toBalance(discount),
			})
			continue
		}

		for i, amount := range prorate(discount, shares, req.Currency) {
			if req.Currency.IsZero(amount) {
				continue
			}
			share := shares[i]
			line := domain.EarlyPaymentLine{
				Kind:             domain.EarlyPaymentDiscount,
				SourceEntryID:    entry.Entry.ID,
				Name:             name,
				Account:          discountAccount,
				Partner:          req.Partner,
				Currency:         req.Currency,
				AmountInCurrency: amount,
				Balance:          toBalance(amount),
				Taxes:            share.Taxes,
			}
			if share.TaxRepartition != nil {
				rep := *share.TaxRepartition
				line.Kind = domain.EarlyPaymentTax
				line.Name = share.Name
				line.Account = share.Account
				line.Taxes = nil
				line.TaxRepartition = &rep
			}
			lines = append(lines, line)
		}
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Balance)
	}
	if diff := company.Round(req.OpenBalance.Sub(total)); !diff.IsZero() && len(lines) > 0 {
		account := req.Company.ExchangeLossAccount
		if diff.IsNegative() {
			account = req.Company.ExchangeGainAccount
		}
		lines = append(lines, domain.EarlyPaymentLine{
			Kind:             domain.EarlyPaymentExchange,
			Name:             "Exchange difference",
			Account:          account,
			Partner:          req.Partner,
			Currency:         req.Currency,
			AmountInCurrency: decimal.Zero,
			Balance:          diff,
		})
	}
	return lines, nil
}

// prorate splits amount over shares by weight, the last share taking the
// rounding remainder.
func prorate(amount decimal.Decimal, shares []domain.DiscountShare, cur domain.Currency) []decimal.Decimal {
	weight := decimal.Zero
	for _, s := range shares {
		weight = weight.Add(s.AmountInCurrency.Abs())
	}
	out := make([]decimal.Decimal, len(shares))
	if weight.IsZero() {
		out[len(out)-1] = amount
		return out
	}

	allocated := decimal.Zero
	for i, s := range shares {
		if i == len(shares)-1 {
			out[i] = amount.Sub(allocated)
			break
		}
		out[i] = cur.Round(amount.Mul(s.AmountInCurrency.Abs()).Div(weight))
		allocated = allocated.Add(out[i])
	}
	return out
}
