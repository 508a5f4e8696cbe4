package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineRole tells which part of the engine owns a reconciliation line.
type LineRole string

const (
	RoleLiquidity      LineRole = "liquidity"
	RoleAutoBalance    LineRole = "auto_balance"
	RoleManual         LineRole = "manual"
	RoleNewSourceEntry LineRole = "new_source_entry"
	RoleTaxLine        LineRole = "tax_line"
	RoleEarlyPayment   LineRole = "early_payment"
)

// ReconciliationLine is one proposed ledger line of the working set.
type ReconciliationLine struct {
	Index                int                        `json:"index"`
	Role                 LineRole                   `json:"role"`
	Name                 string                     `json:"name"`
	SourceEntryRef       string                     `json:"source_entry_ref,omitempty"`
	Account              Account                    `json:"account"`
	Partner              *Partner                   `json:"partner,omitempty"`
	Currency             Currency                   `json:"currency"`
	AmountInCurrency     decimal.Decimal            `json:"amount_in_currency"`
	Balance              decimal.Decimal            `json:"balance"`
	Taxes                []Tax                      `json:"taxes,omitempty"`
	TaxTags              []string                   `json:"tax_tags,omitempty"`
	TaxRepartition       *TaxRepartition            `json:"tax_repartition,omitempty"`
	TaxBaseAmount        decimal.Decimal            `json:"tax_base_amount"`
	ForcePriceIncluded   bool                       `json:"force_price_included"`
	AnalyticDistribution map[string]decimal.Decimal `json:"analytic_distribution,omitempty"`
	RuleRef              string                     `json:"rule_ref,omitempty"`

	// Full residual of the source entry when the line was added.
	SourceAmountInCurrency decimal.Decimal `json:"source_amount_in_currency"`
	SourceBalance          decimal.Decimal `json:"source_balance"`
	ManuallyModified       bool            `json:"manually_modified"`
}

// HasTaxes reports whether the line carries at least one tax.
func (l *ReconciliationLine) HasTaxes() bool {
	return len(l.Taxes) > 0
}

// IsPartial reports whether a source line is matched for less than its full residual.
func (l *ReconciliationLine) IsPartial() bool {
	return l.Role == RoleNewSourceEntry && !l.AmountInCurrency.Equal(l.SourceAmountInCurrency)
}

// Clone returns a deep copy of the line.
func (l *ReconciliationLine) Clone() *ReconciliationLine {
	c := *l
	if l.Taxes != nil {
		c.Taxes = append([]Tax(nil), l.Taxes...)
	}
	if l.TaxTags != nil {
		c.TaxTags = append([]string(nil), l.TaxTags...)
	}
	if l.TaxRepartition != nil {
		rep := *l.TaxRepartition
		c.TaxRepartition = &rep
	}
	if l.AnalyticDistribution != nil {
		c.AnalyticDistribution = make(map[string]decimal.Decimal, len(l.AnalyticDistribution))
		for k, v := range l.AnalyticDistribution {
			c.AnalyticDistribution[k] = v
		}
	}
	return &c
}

// WorkingSet is the ordered set of lines proposed for one transaction.
type WorkingSet struct {
	Transaction          Transaction
	Amounts              AccountingAmounts
	Lines                []*ReconciliationLine
	Partner              *Partner
	CurrentlyEditedIndex *int
	ToCheck              bool

	nextIndex int
}

// NewWorkingSet creates an empty working set for tx.
func NewWorkingSet(tx Transaction, amounts AccountingAmounts) *WorkingSet {
	return &WorkingSet{
		Transaction: tx,
		Amounts:     amounts,
		Partner:     tx.Partner,
	}
}

// Append assigns a fresh index to line and adds it at the end.
// Indexes are never reused within a working set.
func (w *WorkingSet) Append(line *ReconciliationLine) *ReconciliationLine {
	line.Index = w.nextIndex
	w.nextIndex++
	w.Lines = append(w.Lines, line)
	return line
}

// Line returns the line carrying index, or nil.
func (w *WorkingSet) Line(index int) *ReconciliationLine {
	for _, l := range w.Lines {
		if l.Index == index {
			return l
		}
	}
	return nil
}

// Remove drops the line carrying index and reports whether it existed.
func (w *WorkingSet) Remove(index int) bool {
	for i, l := range w.Lines {
		if l.Index == index {
			w.Lines = append(w.Lines[:i], w.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveWhere drops every line matching fn.
func (w *WorkingSet) RemoveWhere(fn func(*ReconciliationLine) bool) int {
	kept := w.Lines[:0]
	removed := 0
	for _, l := range w.Lines {
		if fn(l) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	w.Lines = kept
	return removed
}

// LinesWithRole returns the lines of the given role in order.
func (w *WorkingSet) LinesWithRole(role LineRole) []*ReconciliationLine {
	var out []*ReconciliationLine
	for _, l := range w.Lines {
		if l.Role == role {
			out = append(out, l)
		}
	}
	return out
}

// FirstWithRole returns the first line of the given role, or nil.
func (w *WorkingSet) FirstWithRole(role LineRole) *ReconciliationLine {
	for _, l := range w.Lines {
		if l.Role == role {
			return l
		}
	}
	return nil
}

// LineForSourceEntry returns the line matching the source entry, or nil.
func (w *WorkingSet) LineForSourceEntry(ref string) *ReconciliationLine {
	if ref == "" {
		return nil
	}
	for _, l := range w.Lines {
		if l.SourceEntryRef == ref {
			return l
		}
	}
	return nil
}

// Clone returns a deep copy used to roll back a failed action.
func (w *WorkingSet) Clone() *WorkingSet {
	c := *w
	c.Lines = make([]*ReconciliationLine, len(w.Lines))
	for i, l := range w.Lines {
		c.Lines[i] = l.Clone()
	}
	if w.CurrentlyEditedIndex != nil {
		idx := *w.CurrentlyEditedIndex
		c.CurrentlyEditedIndex = &idx
	}
	return &c
}

// Validate checks the structural invariants of the set.
func (w *WorkingSet) Validate() error {
	if len(w.Lines) == 0 {
		return nil
	}

	liquidity, autoBalance := 0, 0
	seen := make(map[string]int, len(w.Lines))
	for _, l := range w.Lines {
		switch l.Role {
		case RoleLiquidity:
			liquidity++
		case RoleAutoBalance:
			autoBalance++
		}
		if l.SourceEntryRef == "" {
			continue
		}
		if other, ok := seen[l.SourceEntryRef]; ok {
			return NewDomainError(ErrorDuplicateSourceEntry, "source_entry_ref",
				fmt.Sprintf("source entry %s matched by lines %d and %d", l.SourceEntryRef, other, l.Index))
		}
		seen[l.SourceEntryRef] = l.Index
	}

	if liquidity != 1 {
		return NewDomainError(ErrorInvalidWorkingSet, "role", fmt.Sprintf("expected one liquidity line, got %d", liquidity))
	}
	if autoBalance > 1 {
		return NewDomainError(ErrorInvalidWorkingSet, "role", fmt.Sprintf("expected at most one auto-balance line, got %d", autoBalance))
	}
	return nil
}

// TotalBalance sums the company-currency balance of every line.
func (w *WorkingSet) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, l := range w.Lines {
		total = total.Add(l.Balance)
	}
	return total
}
