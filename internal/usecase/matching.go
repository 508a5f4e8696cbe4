package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"go.uber.org/zap"
)

// AppliedResult reports the lines a reconcile model produced.
type AppliedResult struct {
	RuleID         string
	CreatedIndexes []int
	RemovedLines   int
}

// MatchOutcome reports what TriggerMatchingRules did.
type MatchOutcome struct {
	Rule         *domain.ReconcileModel
	AddedEntries int
	Applied      *AppliedResult
	Posted       *domain.PostedEntry
}

// ApplyRule replaces the lines of any other reconcile model with the
// write-off lines rule proposes for the current residual.
func (s *Session) ApplyRule(ctx context.Context, rule domain.ReconcileModel) (AppliedResult, error) {
	result := AppliedResult{RuleID: rule.ID}
	err := s.mutate("apply_rule", func() error {
		result.RemovedLines = s.ws.RemoveWhere(func(l *domain.ReconciliationLine) bool {
			if l.Role == domain.RoleLiquidity || l.Role == domain.RoleNewSourceEntry {
				return false
			}
			return l.RuleRef != "" && l.RuleRef != rule.ID
		})
		if err := s.recomputeTaxes(ctx); err != nil {
			return err
		}
		if rule.ToCheck {
			s.ws.ToCheck = true
		}

		open := s.computeOpen(openOptions{})
		proposals, err := s.uc.models.ApplyReconcileModel(ctx, rule, open.AmountInTransactionCurrency, s.ws.Partner, s.ws.Transaction)
		if err != nil {
			return fmt.Errorf("could not apply reconcile model %s: %w", rule.ID, err)
		}

		for _, p := range proposals {
			amount := p.Currency.Round(p.AmountInCurrency)
			if p.Currency.IsZero(amount) {
				continue
			}
			balance, err := s.balanceFor(ctx, p.Currency, amount)
			if err != nil {
				return err
			}
			line := &domain.ReconciliationLine{
				Role:                 domain.RoleManual,
				Name:                 p.Name,
				Account:              p.Account,
				Partner:              p.Partner,
				Currency:             p.Currency,
				AmountInCurrency:     amount,
				Balance:              balance,
				Taxes:                p.Taxes,
				ForcePriceIncluded:   p.ForcePriceIncluded,
				AnalyticDistribution: p.AnalyticDistribution,
				RuleRef:              rule.ID,
			}
			if priceIncluded(line) {
				line.TaxBaseAmount = amount
			}
			s.ws.Append(line)
			result.CreatedIndexes = append(result.CreatedIndexes, line.Index)
		}

		if err := s.recomputeTaxes(ctx); err != nil {
			return err
		}
		s.recomputeAutoBalance()
		return nil
	})
	if err != nil {
		return AppliedResult{}, err
	}
	return result, nil
}

// TriggerMatchingRules runs the matching rules against the transaction. The
// first rule with candidates adds them; a write-off rule without candidates
// applies its lines. An auto-reconcile rule commits a valid result.
func (s *Session) TriggerMatchingRules(ctx context.Context) (MatchOutcome, error) {
	if s.ws.Transaction.IsReconciled {
		return MatchOutcome{}, domain.ErrReadOnly
	}

	match, err := s.uc.matcher.FetchCandidateSourceEntries(ctx, s.ws.Transaction)
	if err != nil {
		return MatchOutcome{}, fmt.Errorf("matching rules failed: %w", err)
	}

	outcome := MatchOutcome{Rule: match.Rule}
	switch {
	case len(match.Candidates) > 0:
		if err := s.AddSourceEntries(ctx, match.Candidates, match.Rule, false); err != nil {
			return outcome, err
		}
		outcome.AddedEntries = len(match.Candidates)
	case match.Rule != nil && match.Rule.RuleType != domain.RuleTypeInvoiceMatching:
		applied, err := s.ApplyRule(ctx, *match.Rule)
		if err != nil {
			return outcome, err
		}
		outcome.Applied = &applied
	default:
		return outcome, nil
	}

	if match.AutoReconcile && s.State() == domain.StateValid {
		posted, err := s.Commit(ctx)
		if err != nil {
			return outcome, err
		}
		outcome.Posted = &posted
	}

	s.logger.Info("matching rules evaluated",
		zap.Int("added_entries", outcome.AddedEntries),
		zap.Bool("posted", outcome.Posted != nil),
	)
	return outcome, nil
}
