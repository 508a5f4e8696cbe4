package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"go.uber.org/zap"
)

// DeriveState tells whether ws can be committed. A line still booked on the
// journal's suspense account makes the set invalid.
func DeriveState(ws *domain.WorkingSet) domain.State {
	if ws.Transaction.IsReconciled {
		return domain.StateReconciled
	}
	suspense := ws.Transaction.Journal.SuspenseAccount
	if suspense.IsSet() {
		for _, l := range ws.Lines {
			if l.Account.ID == suspense.ID {
				return domain.StateInvalid
			}
		}
	}
	return domain.StateValid
}

// Commit posts the working set as a journal entry and reconciles every
// matched source entry. On failure the working set is left unchanged.
func (s *Session) Commit(ctx context.Context) (domain.PostedEntry, error) {
	if state := s.State(); state != domain.StateValid {
		return domain.PostedEntry{}, domain.NewDomainError(domain.ErrorInvalidState, "state",
			fmt.Sprintf("cannot commit a working set in state %s", state))
	}

	entry, links := s.journalEntry()
	posted, err := s.uc.ledger.PostEntry(ctx, entry, links)
	if err != nil {
		s.logger.Error("could not post journal entry", zap.Error(err))
		return domain.PostedEntry{}, fmt.Errorf("could not post journal entry: %w", err)
	}

	tx := s.ws.Transaction
	tx.IsReconciled = true
	tx.Partner = entry.Partner
	tx.PostedEntry = &posted
	s.ws = previewWorkingSet(tx, s.ws.Amounts)

	s.logger.Info("statement line reconciled",
		zap.String("entry", posted.Ref),
		zap.Int("items", len(entry.Items)),
		zap.Int("links", len(links)),
	)
	return posted, nil
}

func (s *Session) journalEntry() (domain.JournalEntry, []domain.ReconcileLink) {
	tx := s.ws.Transaction
	partner := s.sharedPartner()

	entry := domain.JournalEntry{
		TransactionID: tx.ID,
		JournalID:     tx.Journal.ID,
		Date:          tx.Date,
		Ref:           tx.PaymentRef,
		Partner:       partner,
		ToCheck:       s.ws.ToCheck,
		Items:         make([]domain.JournalItem, 0, len(s.ws.Lines)),
	}

	var links []domain.ReconcileLink
	for _, l := range s.ws.Lines {
		item := domain.JournalItem{
			Name:                 l.Name,
			Role:                 l.Role,
			Account:              l.Account,
			Partner:              l.Partner,
			Currency:             l.Currency,
			AmountInCurrency:     l.AmountInCurrency,
			Balance:              l.Balance,
			Taxes:                l.Taxes,
			TaxTags:              l.TaxTags,
			TaxRepartition:       l.TaxRepartition,
			AnalyticDistribution: l.AnalyticDistribution,
			SourceEntryRef:       l.SourceEntryRef,
		}
		if l.Role == domain.RoleLiquidity {
			item.Partner = partner
		}
		if l.Role == domain.RoleNewSourceEntry {
			links = append(links, domain.ReconcileLink{
				ItemPosition:     len(entry.Items),
				SourceEntryRef:   l.SourceEntryRef,
				Currency:         l.Currency,
				AmountInCurrency: l.AmountInCurrency,
				Balance:          l.Balance,
			})
		}
		entry.Items = append(entry.Items, item)
	}
	return entry, links
}

// sharedPartner returns the partner common to every counterpart line that has
// one, or nil when they disagree.
func (s *Session) sharedPartner() *domain.Partner {
	var shared *domain.Partner
	for _, l := range s.ws.Lines {
		if l.Role == domain.RoleLiquidity || l.Role == domain.RoleAutoBalance || l.Partner == nil {
			continue
		}
		if shared == nil {
			shared = l.Partner
			continue
		}
		if shared.ID != l.Partner.ID {
			return nil
		}
	}
	return shared
}
