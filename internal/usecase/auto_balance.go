package usecase

import (
	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

const openBalanceLabel = "Open balance"

type openOptions struct {
	skip func(*domain.ReconciliationLine) bool
	// fullSourceAmounts reads new_source_entry lines at their full residual.
	fullSourceAmounts bool
}

// openBalance is what the auto-balance line would have to carry.
type openBalance struct {
	Currency                    domain.Currency
	AmountInCurrency            decimal.Decimal
	AmountInTransactionCurrency decimal.Decimal
	Balance                     decimal.Decimal
}

// computeOpen sums every line but the liquidity and auto-balance ones. The
// liquidity side comes from the transaction's declared amounts so it is never
// converted twice.
func (s *Session) computeOpen(opts openOptions) openBalance {
	a := s.ws.Amounts
	rate := s.rate()

	amountT := a.TransactionAmount.Neg()
	amountJ := a.JournalAmount.Neg()
	balance := a.CompanyAmount.Neg()

	counted := 0
	allCompany, allJournal := true, true
	for _, l := range s.ws.Lines {
		if l.Role == domain.RoleLiquidity || l.Role == domain.RoleAutoBalance {
			continue
		}
		if opts.skip != nil && opts.skip(l) {
			continue
		}

		amount, lineBalance := l.AmountInCurrency, l.Balance
		if opts.fullSourceAmounts && l.Role == domain.RoleNewSourceEntry {
			amount, lineBalance = l.SourceAmountInCurrency, l.SourceBalance
		}

		counted++
		balance = balance.Sub(lineBalance)
		switch {
		case l.Currency.Is(a.TransactionCurrency):
			amountT = amountT.Sub(amount)
		case l.Currency.Is(a.JournalCurrency):
			amountT = amountT.Sub(rate.JournalToTransaction(amount))
		default:
			converted, _ := rate.AmountIn(a.TransactionCurrency, lineBalance)
			amountT = amountT.Sub(converted)
		}
		if l.Currency.Is(a.JournalCurrency) {
			amountJ = amountJ.Sub(amount)
		}
		allCompany = allCompany && l.Currency.Is(a.CompanyCurrency)
		allJournal = allJournal && l.Currency.Is(a.JournalCurrency)
	}

	out := openBalance{
		Balance:                     a.CompanyCurrency.Round(balance),
		AmountInTransactionCurrency: a.TransactionCurrency.Round(amountT),
	}
	switch {
	case counted == 0:
		out.Currency, out.AmountInCurrency = a.TransactionCurrency, out.AmountInTransactionCurrency
	case allCompany:
		out.Currency, out.AmountInCurrency = a.CompanyCurrency, out.Balance
	case allJournal:
		out.Currency, out.AmountInCurrency = a.JournalCurrency, a.JournalCurrency.Round(amountJ)
	default:
		out.Currency, out.AmountInCurrency = a.TransactionCurrency, out.AmountInTransactionCurrency
	}
	return out
}

// recomputeAutoBalance creates, updates or removes the single balancing line.
// A second call on an unchanged set leaves every line untouched.
func (s *Session) recomputeAutoBalance() {
	open := s.computeOpen(openOptions{})
	existing := s.ws.FirstWithRole(domain.RoleAutoBalance)

	if s.ws.Amounts.CompanyCurrency.IsZero(open.Balance) {
		if existing != nil {
			s.ws.Remove(existing.Index)
		}
		return
	}

	account, name := s.autoBalanceTarget()
	if existing == nil {
		s.ws.Append(&domain.ReconciliationLine{
			Role:             domain.RoleAutoBalance,
			Name:             name,
			Account:          account,
			Partner:          s.ws.Partner,
			Currency:         open.Currency,
			AmountInCurrency: open.AmountInCurrency,
			Balance:          open.Balance,
		})
		return
	}

	if existing.Account != account {
		existing.Account = account
	}
	if existing.Name != name {
		existing.Name = name
	}
	if partnerID(existing.Partner) != partnerID(s.ws.Partner) {
		existing.Partner = s.ws.Partner
	}
	if existing.Currency != open.Currency {
		existing.Currency = open.Currency
	}
	if !existing.AmountInCurrency.Equal(open.AmountInCurrency) {
		existing.AmountInCurrency = open.AmountInCurrency
	}
	if !existing.Balance.Equal(open.Balance) {
		existing.Balance = open.Balance
	}
	s.moveToEnd(existing)
}

// autoBalanceTarget routes the open balance to the partner's receivable or
// payable account, or to the journal's suspense account.
func (s *Session) autoBalanceTarget() (domain.Account, string) {
	tx := s.ws.Transaction
	if p := s.ws.Partner; p != nil {
		account := p.PayableAccount
		if tx.Amount.IsPositive() {
			account = p.ReceivableAccount
		}
		if account.IsSet() {
			return account, openBalanceLabel
		}
	}
	return tx.Journal.SuspenseAccount, tx.PaymentRef
}

func (s *Session) moveToEnd(line *domain.ReconciliationLine) {
	n := len(s.ws.Lines)
	if n == 0 || s.ws.Lines[n-1] == line {
		return
	}
	s.ws.Remove(line.Index)
	s.ws.Lines = append(s.ws.Lines, line)
}

func partnerID(p *domain.Partner) string {
	if p == nil {
		return ""
	}
	return p.ID
}
