package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// priceIncluded reports whether the line amount already contains its taxes.
func priceIncluded(l *domain.ReconciliationLine) bool {
	if !l.HasTaxes() {
		return false
	}
	if l.ForcePriceIncluded {
		return true
	}
	for _, t := range l.Taxes {
		if t.PriceInclude {
			return true
		}
	}
	return false
}

// recomputeTaxes hands every manual base line and every tax line to the tax
// evaluator and applies its buckets. A base line whose amount is price
// included is priced from TaxBaseAmount so a second pass yields the same lines.
func (s *Session) recomputeTaxes(ctx context.Context) error {
	var req domain.TaxEvaluationRequest
	for _, l := range s.ws.Lines {
		switch {
		case l.Role == domain.RoleManual && l.TaxRepartition == nil:
			included := priceIncluded(l)
			price := l.AmountInCurrency
			if included {
				if l.TaxBaseAmount.IsZero() {
					l.TaxBaseAmount = l.AmountInCurrency
				}
				price = l.TaxBaseAmount
			}
			req.BaseLines = append(req.BaseLines, domain.TaxBaseInput{
				LineIndex:     l.Index,
				Currency:      l.Currency,
				Account:       l.Account,
				Partner:       l.Partner,
				Taxes:         l.Taxes,
				PriceUnit:     price,
				PriceIncluded: included,
				IsRefund:      domain.IsRefundFor(l.Taxes, l.Balance),
			})
		case l.Role == domain.RoleTaxLine:
			var rep domain.TaxRepartition
			if l.TaxRepartition != nil {
				rep = *l.TaxRepartition
			}
			req.TaxLines = append(req.TaxLines, domain.TaxLineInput{
				LineIndex:        l.Index,
				Repartition:      rep,
				Account:          l.Account,
				Currency:         l.Currency,
				AmountInCurrency: l.AmountInCurrency,
				TaxTags:          l.TaxTags,
			})
		}
	}
	if len(req.BaseLines) == 0 && len(req.TaxLines) == 0 {
		return nil
	}

	result, err := s.uc.taxes.EvaluateTaxes(ctx, req)
	if err != nil {
		return fmt.Errorf("tax evaluation failed: %w", err)
	}

	for _, u := range result.BaseLinesToUpdate {
		line := s.ws.Line(u.LineIndex)
		if line == nil || line.Role != domain.RoleManual {
			continue
		}
		if err := s.setAmount(ctx, line, u.AmountInCurrency); err != nil {
			return err
		}
		if !equalTags(line.TaxTags, u.TaxTags) {
			line.TaxTags = copyTags(u.TaxTags)
		}
	}

	for _, idx := range result.TaxLinesToDelete {
		if line := s.ws.Line(idx); line != nil && line.Role == domain.RoleTaxLine {
			s.ws.Remove(idx)
		}
	}

	for _, p := range result.TaxLinesToCreate {
		amount := p.Currency.Round(p.AmountInCurrency)
		balance, err := s.balanceFor(ctx, p.Currency, amount)
		if err != nil {
			return err
		}
		rep := p.Repartition
		s.ws.Append(&domain.ReconciliationLine{
			Role:             domain.RoleTaxLine,
			Name:             p.Name,
			Account:          p.Account,
			Partner:          p.Partner,
			Currency:         p.Currency,
			AmountInCurrency: amount,
			Balance:          balance,
			TaxTags:          copyTags(p.TaxTags),
			TaxRepartition:   &rep,
		})
	}

	for _, u := range result.TaxLinesToUpdate {
		line := s.ws.Line(u.LineIndex)
		if line == nil || line.Role != domain.RoleTaxLine {
			continue
		}
		if err := s.setAmount(ctx, line, u.AmountInCurrency); err != nil {
			return err
		}
		if !equalTags(line.TaxTags, u.TaxTags) {
			line.TaxTags = copyTags(u.TaxTags)
		}
	}
	return nil
}

// setAmount changes the line amount and its balance only when the amount differs.
func (s *Session) setAmount(ctx context.Context, line *domain.ReconciliationLine, amount decimal.Decimal) error {
	amount = line.Currency.Round(amount)
	if line.AmountInCurrency.Equal(amount) {
		return nil
	}
	balance, err := s.rederiveBalance(ctx, line, amount)
	if err != nil {
		return err
	}
	line.AmountInCurrency = amount
	line.Balance = balance
	return nil
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return append([]string(nil), tags...)
}
