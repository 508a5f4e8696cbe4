package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func isEarlyPaymentLine(l *domain.ReconciliationLine) bool {
	return l.Role == domain.RoleEarlyPayment
}

// tryEarlyPayment replaces the early-payment lines when the open residual,
// with every source line at its full amount, equals the sum of the discounts
// still granted by the matched entries. It reports whether the discount applies;
// when it does not, stale early-payment lines are dropped.
func (s *Session) tryEarlyPayment(ctx context.Context) (bool, error) {
	a := s.ws.Amounts
	sources := s.ws.LinesWithRole(domain.RoleNewSourceEntry)
	decline := func() (bool, error) {
		s.ws.RemoveWhere(isEarlyPaymentLine)
		return false, nil
	}

	if len(sources) == 0 {
		return decline()
	}
	for _, l := range sources {
		if !l.Currency.Is(a.TransactionCurrency) {
			return decline()
		}
	}

	open := s.computeOpen(openOptions{skip: isEarlyPaymentLine, fullSourceAmounts: true})

	var eligible []domain.EarlyPaymentEntry
	total := decimal.Zero
	for _, l := range sources {
		entry, err := s.uc.entries.FetchSourceEntry(ctx, l.SourceEntryRef)
		if err != nil {
			return false, fmt.Errorf("could not fetch source entry %s: %w", l.SourceEntryRef, err)
		}
		if !entry.EligibleForEarlyPayment(a.TransactionCurrency, s.ws.Transaction.Date) {
			continue
		}
		total = total.Add(entry.EarlyPaymentDiscount())
		eligible = append(eligible, domain.EarlyPaymentEntry{
			Entry:            entry,
			AmountInCurrency: l.SourceAmountInCurrency,
			Balance:          l.SourceBalance,
		})
	}

	if len(eligible) == 0 || a.TransactionCurrency.CompareAmounts(open.AmountInTransactionCurrency, total) != 0 {
		return decline()
	}

	for _, l := range sources {
		l.AmountInCurrency = l.SourceAmountInCurrency
		l.Balance = l.SourceBalance
		l.ManuallyModified = false
	}
	s.ws.RemoveWhere(isEarlyPaymentLine)

	lines, err := s.uc.earlyPayment.EvaluateEarlyPaymentSplit(ctx, domain.EarlyPaymentRequest{
		Currency:             a.TransactionCurrency,
		Company:              s.ws.Transaction.Journal.Company,
		Date:                 s.ws.Transaction.Date,
		Partner:              s.ws.Partner,
		Entries:              eligible,
		OpenAmountInCurrency: open.AmountInTransactionCurrency,
		OpenBalance:          open.Balance,
	})
	if err != nil {
		return false, fmt.Errorf("early payment split failed: %w", err)
	}

	for _, el := range lines {
		s.ws.Append(&domain.ReconciliationLine{
			Role:             domain.RoleEarlyPayment,
			Name:             el.Name,
			Account:          el.Account,
			Partner:          el.Partner,
			Currency:         el.Currency,
			AmountInCurrency: el.AmountInCurrency,
			Balance:          el.Balance,
			Taxes:            el.Taxes,
			TaxTags:          copyTags(el.TaxTags),
			TaxRepartition:   el.TaxRepartition,
		})
	}

	s.logger.Debug("early payment discount applied",
		zap.Int("entries", len(eligible)),
		zap.String("discount", total.String()),
		zap.Int("lines", len(lines)),
	)
	return true, nil
}
