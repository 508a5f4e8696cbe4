package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the engine consults.
type Dependencies struct {
	Rates        RateProvider
	Entries      SourceEntryRepository
	Matcher      CandidateMatcher
	Rules        RuleRepository
	Taxes        TaxEvaluator
	EarlyPayment EarlyPaymentEvaluator
	Models       ReconcileModelEvaluator
	Ledger       LedgerWriter
}

// Option customizes a ReconciliationUseCase.
type Option func(*ReconciliationUseCase)

// WithLogger sets the logger used by every session.
func WithLogger(logger *zap.Logger) Option {
	return func(uc *ReconciliationUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// ReconciliationUseCase opens reconciliation sessions on bank transactions.
type ReconciliationUseCase struct {
	converter    *CurrencyConverter
	entries      SourceEntryRepository
	matcher      CandidateMatcher
	rules        RuleRepository
	taxes        TaxEvaluator
	earlyPayment EarlyPaymentEvaluator
	models       ReconcileModelEvaluator
	ledger       LedgerWriter
	logger       *zap.Logger
}

// NewReconciliationUseCase creates a new instance of the usecase.
func NewReconciliationUseCase(deps Dependencies, opts ...Option) *ReconciliationUseCase {
	uc := &ReconciliationUseCase{
		converter:    NewCurrencyConverter(deps.Rates),
		entries:      deps.Entries,
		matcher:      deps.Matcher,
		rules:        deps.Rules,
		taxes:        deps.Taxes,
		earlyPayment: deps.EarlyPayment,
		models:       deps.Models,
		ledger:       deps.Ledger,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Converter exposes the currency conversion service.
func (uc *ReconciliationUseCase) Converter() *CurrencyConverter {
	return uc.converter
}

// Open seeds a working set for tx. A reconciled transaction is opened
// read-only from its posted lines.
func (uc *ReconciliationUseCase) Open(ctx context.Context, tx domain.Transaction) (*Session, error) {
	s := &Session{
		uc:     uc,
		logger: uc.logger.With(zap.String("statement_line", tx.ID)),
	}
	if err := s.seed(ctx, tx); err != nil {
		return nil, fmt.Errorf("could not open statement line %s: %w", tx.ID, err)
	}
	return s, nil
}

// Session owns the working set of one transaction. It is not safe for
// concurrent use; callers serialize actions.
type Session struct {
	uc     *ReconciliationUseCase
	ws     *domain.WorkingSet
	logger *zap.Logger
}

// WorkingSet returns a copy of the current working set.
func (s *Session) WorkingSet() *domain.WorkingSet {
	return s.ws.Clone()
}

func (s *Session) seed(ctx context.Context, tx domain.Transaction) error {
	amounts, err := s.uc.converter.AccountingAmounts(ctx, tx)
	if err != nil {
		return err
	}

	if tx.IsReconciled {
		s.ws = previewWorkingSet(tx, amounts)
		return nil
	}

	ws := domain.NewWorkingSet(tx, amounts)
	ws.Append(&domain.ReconciliationLine{
		Role:             domain.RoleLiquidity,
		Name:             tx.PaymentRef,
		Account:          tx.Journal.LiquidityAccount,
		Partner:          tx.Partner,
		Currency:         amounts.JournalCurrency,
		AmountInCurrency: amounts.JournalAmount,
		Balance:          amounts.CompanyAmount,
	})
	s.ws = ws
	s.recomputeAutoBalance()
	return nil
}

func previewWorkingSet(tx domain.Transaction, amounts domain.AccountingAmounts) *domain.WorkingSet {
	ws := domain.NewWorkingSet(tx, amounts)
	if tx.PostedEntry == nil {
		return ws
	}
	for _, item := range tx.PostedEntry.Items {
		role := item.Role
		if role == domain.RoleAutoBalance {
			role = domain.RoleManual
		}
		ws.Append(&domain.ReconciliationLine{
			Role:                 role,
			Name:                 item.Name,
			SourceEntryRef:       item.SourceEntryRef,
			Account:              item.Account,
			Partner:              item.Partner,
			Currency:             item.Currency,
			AmountInCurrency:     item.AmountInCurrency,
			Balance:              item.Balance,
			Taxes:                item.Taxes,
			TaxTags:              item.TaxTags,
			TaxRepartition:       item.TaxRepartition,
			AnalyticDistribution: item.AnalyticDistribution,
		})
	}
	return ws
}

// mutate runs fn on the working set and restores the previous set when fn
// fails or leaves a broken invariant.
func (s *Session) mutate(action string, fn func() error) error {
	if s.ws.Transaction.IsReconciled {
		return domain.ErrReadOnly
	}

	before := s.ws.Clone()
	if err := fn(); err != nil {
		s.ws = before
		s.logger.Warn("action rolled back", zap.String("action", action), zap.Error(err))
		return err
	}
	if err := s.ws.Validate(); err != nil {
		s.ws = before
		s.logger.Warn("action rolled back", zap.String("action", action), zap.Error(err))
		return err
	}

	s.logger.Debug("action applied",
		zap.String("action", action),
		zap.Int("lines", len(s.ws.Lines)),
		zap.String("state", string(s.State())),
	)
	return nil
}

func (s *Session) rate() TransactionRate {
	return s.uc.converter.UsingTransactionRate(s.ws.Amounts)
}

// balanceFor converts amount in currency to company currency, preferring the
// transaction's own rate.
func (s *Session) balanceFor(ctx context.Context, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	if balance, ok := s.rate().Balance(currency, amount); ok {
		return balance, nil
	}
	return s.uc.converter.Convert(ctx, amount, currency, s.ws.Amounts.CompanyCurrency, s.ws.Transaction.Date)
}

// rederiveBalance recomputes the balance of line for a new amount. Source
// lines keep the rate of their source entry.
func (s *Session) rederiveBalance(ctx context.Context, line *domain.ReconciliationLine, amount decimal.Decimal) (decimal.Decimal, error) {
	if line.Role == domain.RoleNewSourceEntry && !line.SourceAmountInCurrency.IsZero() {
		return scale(amount, line.SourceBalance, line.SourceAmountInCurrency, s.ws.Amounts.CompanyCurrency), nil
	}
	return s.balanceFor(ctx, line.Currency, amount)
}

// newSourceEntryLine builds the line matching entry. The currency and amounts
// depend on which of the transaction, company and entry currencies coincide.
func (s *Session) newSourceEntryLine(ctx context.Context, entry domain.SourceEntry, rule *domain.ReconcileModel) (*domain.ReconciliationLine, error) {
	a := s.ws.Amounts
	line := &domain.ReconciliationLine{
		Role:             domain.RoleNewSourceEntry,
		Name:             entry.Name,
		SourceEntryRef:   entry.ID,
		Account:          entry.Account,
		Partner:          entry.Partner,
		Currency:         entry.Currency,
		AmountInCurrency: entry.AmountResidualCurrency.Neg(),
		Balance:          entry.AmountResidual.Neg(),
	}
	if rule != nil {
		line.RuleRef = rule.ID
	}

	switch {
	case entry.Currency.Is(a.TransactionCurrency):
		balance, _ := s.rate().Balance(entry.Currency, line.AmountInCurrency)
		line.Balance = balance
	case entry.Currency.Is(a.CompanyCurrency):
		amount, _ := s.rate().AmountIn(a.TransactionCurrency, line.Balance)
		line.Currency = a.TransactionCurrency
		line.AmountInCurrency = amount
	case a.TransactionCurrency.Is(a.CompanyCurrency):
		balance, err := s.uc.converter.Convert(ctx, line.AmountInCurrency, entry.Currency, a.CompanyCurrency, s.ws.Transaction.Date)
		if err != nil {
			return nil, err
		}
		line.Balance = balance
	}

	line.SourceAmountInCurrency = line.AmountInCurrency
	line.SourceBalance = line.Balance
	return line, nil
}

// AddSourceEntries matches entries against the transaction. An entry already
// referenced by a line rejects the whole call.
func (s *Session) AddSourceEntries(ctx context.Context, entries []domain.SourceEntry, rule *domain.ReconcileModel, allowPartial bool) error {
	return s.mutate("add_source_entries", func() error {
		seen := make(map[string]bool, len(entries))
		for _, entry := range entries {
			if seen[entry.ID] || s.ws.LineForSourceEntry(entry.ID) != nil {
				return domain.NewDomainError(domain.ErrorDuplicateSourceEntry, "source_entry_ref",
					fmt.Sprintf("source entry %s is already matched", entry.ID))
			}
			if entry.Reconciled {
				return domain.NewDomainError(domain.ErrorInvalidInput, "source_entry_ref",
					fmt.Sprintf("source entry %s is fully reconciled", entry.ID))
			}
			seen[entry.ID] = true
		}

		for _, entry := range entries {
			line, err := s.newSourceEntryLine(ctx, entry, rule)
			if err != nil {
				return err
			}
			s.ws.Append(line)
		}

		applied, err := s.tryEarlyPayment(ctx)
		if err != nil {
			return err
		}
		if !applied && allowPartial {
			s.tryPartialMatch()
		}
		s.recomputeAutoBalance()
		return nil
	})
}

// RemoveLine drops the line at index and rebalances the set.
func (s *Session) RemoveLine(ctx context.Context, index int) error {
	return s.mutate("remove_line", func() error {
		line := s.ws.Line(index)
		if line == nil {
			return domain.NewDomainError(domain.ErrorLineNotFound, "index", fmt.Sprintf("no line with index %d", index))
		}
		if line.Role == domain.RoleLiquidity {
			return domain.NewDomainError(domain.ErrorInvalidInput, "index", "the liquidity line cannot be removed")
		}

		hadTaxes := line.HasTaxes()
		wasSource := line.Role == domain.RoleNewSourceEntry
		s.ws.Remove(index)
		if s.ws.CurrentlyEditedIndex != nil && *s.ws.CurrentlyEditedIndex == index {
			s.ws.CurrentlyEditedIndex = nil
		}

		if hadTaxes {
			if err := s.recomputeTaxes(ctx); err != nil {
				return err
			}
		}
		if wasSource {
			applied, err := s.tryEarlyPayment(ctx)
			if err != nil {
				return err
			}
			if !applied {
				s.tryPartialMatch()
			}
		}
		s.recomputeAutoBalance()
		return nil
	})
}

// Reset discards the working set and seeds a fresh one.
func (s *Session) Reset(ctx context.Context) error {
	if s.ws.Transaction.IsReconciled {
		return domain.ErrReadOnly
	}
	return s.reseed(ctx, s.ws.Transaction)
}

// UpdateTransaction refreshes the transaction behind the session. A change to
// the liquidity fields reseeds the set; other changes re-route the open balance.
func (s *Session) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	if !s.ws.Transaction.SameLiquidity(tx) || tx.IsReconciled != s.ws.Transaction.IsReconciled {
		return s.reseed(ctx, tx)
	}
	return s.mutate("update_transaction", func() error {
		s.ws.Transaction = tx
		s.ws.Partner = tx.Partner
		if liquidity := s.ws.FirstWithRole(domain.RoleLiquidity); liquidity != nil {
			liquidity.Name = tx.PaymentRef
			liquidity.Partner = tx.Partner
		}
		s.recomputeAutoBalance()
		return nil
	})
}

func (s *Session) reseed(ctx context.Context, tx domain.Transaction) error {
	before := s.ws
	if err := s.seed(ctx, tx); err != nil {
		s.ws = before
		return err
	}
	s.logger.Debug("working set reseeded", zap.Int("lines", len(s.ws.Lines)))
	return nil
}

// State derives the validity of the working set.
func (s *Session) State() domain.State {
	return DeriveState(s.ws)
}

// Snapshot returns a renderable copy of the working set.
func (s *Session) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		TransactionID: s.ws.Transaction.ID,
		PaymentRef:    s.ws.Transaction.PaymentRef,
		Lines:         make([]domain.ReconciliationLine, 0, len(s.ws.Lines)),
		State:         s.State(),
	}
	if s.ws.CurrentlyEditedIndex != nil {
		idx := *s.ws.CurrentlyEditedIndex
		snap.EditedIndex = &idx
	}

	company := s.ws.Amounts.CompanyCurrency
	flags := domain.DisplayFlags{
		ReadOnly: s.ws.Transaction.IsReconciled,
		ToCheck:  s.ws.ToCheck,
	}
	for _, l := range s.ws.Lines {
		snap.Lines = append(snap.Lines, *l.Clone())
		if !l.Currency.Is(company) {
			flags.ShowForeignCurrency = true
		}
		if l.HasTaxes() || l.Role == domain.RoleTaxLine {
			flags.ShowTaxes = true
		}
		if len(l.AnalyticDistribution) > 0 {
			flags.ShowAnalytic = true
		}
		if l.Role == domain.RoleEarlyPayment {
			flags.EarlyPaymentApplied = true
		}
		if l.IsPartial() {
			flags.PartialMatched = true
		}
	}
	snap.DisplayFlags = flags
	return snap
}
