package gateway

import (
	"context"
	"strings"

	"bank-reconciliation/internal/domain"
)

// OpenEntrySource lists the open source entries candidates are picked from.
type OpenEntrySource interface {
	OpenSourceEntries(ctx context.Context) ([]domain.SourceEntry, error)
}

// RuleMatcher evaluates the catalog's reconcile models in sequence order.
type RuleMatcher struct {
	catalog *Catalog
	entries OpenEntrySource
}

// NewRuleMatcher creates a matcher.
func NewRuleMatcher(catalog *Catalog, entries OpenEntrySource) *RuleMatcher {
	return &RuleMatcher{catalog: catalog, entries: entries}
}

// FetchCandidateSourceEntries returns the candidates of the first invoice
// matching model that finds any. Failing that, the first applicable write-off
// suggestion is returned without candidates.
func (m *RuleMatcher) FetchCandidateSourceEntries(ctx context.Context, tx domain.Transaction) (domain.MatchResult, error) {
	var open []domain.SourceEntry
	loaded := false
	var suggestion *domain.ReconcileModel

	for _, model := range m.catalog.ReconcileModels() {
		if !model.AppliesTo(tx) {
			continue
		}
		switch model.RuleType {
		case domain.RuleTypeInvoiceMatching:
			if !loaded {
				var err error
				if open, err = m.entries.OpenSourceEntries(ctx); err != nil {
					return domain.MatchResult{}, err
				}
				loaded = true
			}
			candidates := matchCandidates(open, tx, model)
			if len(candidates) > 0 {
				rule := model
				return domain.MatchResult{
					Candidates:    candidates,
					Rule:          &rule,
					AutoReconcile: model.AutoReconcile,
				}, nil
			}
		case domain.RuleTypeWriteOffSuggestion:
			if suggestion == nil {
				rule := model
				suggestion = &rule
			}
		}
	}

	if suggestion != nil {
		return domain.MatchResult{Rule: suggestion, AutoReconcile: suggestion.AutoReconcile}, nil
	}
	return domain.MatchResult{}, nil
}

// matchCandidates prefers entries whose name appears in the payment reference.
// Otherwise, with a known partner, every open entry of that partner settled
// in the transaction's direction is proposed.
func matchCandidates(open []domain.SourceEntry, tx domain.Transaction, model domain.ReconcileModel) []domain.SourceEntry {
	ref := strings.ToLower(tx.PaymentRef)
	var byRef, byPartner []domain.SourceEntry
	for _, e := range open {
		if e.Reconciled || e.AmountResidual.Sign() != tx.Amount.Sign() {
			continue
		}
		if tx.Partner != nil && e.Partner != nil && e.Partner.ID != tx.Partner.ID {
			continue
		}
		if e.Name != "" && strings.Contains(ref, strings.ToLower(e.Name)) {
			byRef = append(byRef, e)
			continue
		}
		if tx.Partner != nil && e.Partner != nil {
			byPartner = append(byPartner, e)
		}
	}
	if len(byRef) > 0 {
		return byRef
	}
	if model.MatchPartner {
		return byPartner
	}
	return nil
}
