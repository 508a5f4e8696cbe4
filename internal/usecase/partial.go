package usecase

import (
	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// lastSourceLine returns the most recently added source line, or nil.
func (s *Session) lastSourceLine() *domain.ReconciliationLine {
	var last *domain.ReconciliationLine
	for _, l := range s.ws.LinesWithRole(domain.RoleNewSourceEntry) {
		if last == nil || l.Index > last.Index {
			last = l
		}
	}
	return last
}

// tryPartialMatch reduces the last source line so the transaction is fully
// consumed. It applies only when the residual left for that line is non-zero,
// has the line's sign and is strictly smaller than its full amount. A line the
// user edited is never touched; any other declined line is reset to full.
func (s *Session) tryPartialMatch() bool {
	last := s.lastSourceLine()
	if last == nil || last.ManuallyModified {
		return false
	}

	a := s.ws.Amounts
	open := s.computeOpen(openOptions{skip: func(l *domain.ReconciliationLine) bool {
		return l.Index == last.Index
	}})

	inTransactionCurrency := last.Currency.Is(a.TransactionCurrency)
	target, full, cur := open.Balance, last.SourceBalance, a.CompanyCurrency
	if inTransactionCurrency {
		target, full, cur = open.AmountInTransactionCurrency, last.SourceAmountInCurrency, a.TransactionCurrency
	}

	absorbs := !cur.IsZero(target) &&
		target.Sign() == full.Sign() &&
		cur.CompareAmounts(target.Abs(), full.Abs()) < 0
	if !absorbs {
		restoreFull(last)
		return false
	}

	var amount, balance decimal.Decimal
	if inTransactionCurrency {
		amount = cur.Round(target)
		balance = scale(amount, last.SourceBalance, last.SourceAmountInCurrency, a.CompanyCurrency)
	} else {
		balance = cur.Round(target)
		amount = scale(balance, last.SourceAmountInCurrency, last.SourceBalance, last.Currency)
	}
	if !last.AmountInCurrency.Equal(amount) {
		last.AmountInCurrency = amount
	}
	if !last.Balance.Equal(balance) {
		last.Balance = balance
	}
	return true
}

func restoreFull(l *domain.ReconciliationLine) {
	if !l.AmountInCurrency.Equal(l.SourceAmountInCurrency) {
		l.AmountInCurrency = l.SourceAmountInCurrency
	}
	if !l.Balance.Equal(l.SourceBalance) {
		l.Balance = l.SourceBalance
	}
}
