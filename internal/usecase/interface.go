package usecase

import (
	"context"
	"time"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// The engine depends on these interfaces, never on concrete adapters.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go

// RateProvider returns how many units of currency equal one unit of the
// provider's base currency on date.
type RateProvider interface {
	RateAt(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

// SourceEntryRepository reads open ledger entries.
type SourceEntryRepository interface {
	FetchSourceEntry(ctx context.Context, id string) (domain.SourceEntry, error)
}

// CandidateMatcher evaluates the matching rules for a transaction.
type CandidateMatcher interface {
	FetchCandidateSourceEntries(ctx context.Context, tx domain.Transaction) (domain.MatchResult, error)
}

// RuleRepository resolves reconcile models by id.
type RuleRepository interface {
	FetchReconcileModel(ctx context.Context, id string) (domain.ReconcileModel, error)
}

// TaxEvaluator computes tax lines from base lines.
type TaxEvaluator interface {
	EvaluateTaxes(ctx context.Context, req domain.TaxEvaluationRequest) (domain.TaxEvaluation, error)
}

// EarlyPaymentEvaluator splits an early-payment discount into ledger lines.
type EarlyPaymentEvaluator interface {
	EvaluateEarlyPaymentSplit(ctx context.Context, req domain.EarlyPaymentRequest) ([]domain.EarlyPaymentLine, error)
}

// ReconcileModelEvaluator turns a reconcile model into write-off proposals.
type ReconcileModelEvaluator interface {
	ApplyReconcileModel(ctx context.Context, rule domain.ReconcileModel, residual decimal.Decimal, partner *domain.Partner, tx domain.Transaction) ([]domain.WriteOffProposal, error)
}

// LedgerWriter posts a journal entry and its reconciliation links atomically.
type LedgerWriter interface {
	PostEntry(ctx context.Context, entry domain.JournalEntry, links []domain.ReconcileLink) (domain.PostedEntry, error)
}
