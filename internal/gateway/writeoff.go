package gateway

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// WriteOffEvaluator turns reconcile model lines into write-off proposals in
// the transaction currency.
type WriteOffEvaluator struct{}

// NewWriteOffEvaluator creates an evaluator.
func NewWriteOffEvaluator() *WriteOffEvaluator {
	return &WriteOffEvaluator{}
}

// ApplyReconcileModel proposes one line per model line. Percentages apply to
// what is left of residual after the previous lines, or to the statement
// amount for percentage_st_line. Fixed amounts take the sign of residual.
func (e *WriteOffEvaluator) ApplyReconcileModel(ctx context.Context, rule domain.ReconcileModel, residual decimal.Decimal, partner *domain.Partner, tx domain.Transaction) ([]domain.WriteOffProposal, error) {
	cur := tx.TransactionCurrency()
	statementAmount := tx.Amount
	if !cur.Is(tx.Journal.EffectiveCurrency()) {
		statementAmount = tx.AmountCurrency
	}

	remaining := residual
	var proposals []domain.WriteOffProposal
	for i, line := range rule.Lines {
		var amount decimal.Decimal
		switch line.AmountType {
		case domain.RuleAmountFixed:
			amount = line.Amount
			if residual.IsNegative() {
				amount = amount.Neg()
			}
		case domain.RuleAmountPercentage:
			amount = remaining.Mul(line.Amount).Div(hundred)
		case domain.RuleAmountPercentageStLine:
			amount = statementAmount.Neg().Mul(line.Amount).Div(hundred)
		default:
			return nil, domain.NewDomainError(domain.ErrorInvalidInput, "amount_type",
				fmt.Sprintf("unsupported amount type %q on line %d of %s", line.AmountType, i, rule.ID))
		}
		amount = cur.Round(amount)
		if cur.IsZero(amount) {
			continue
		}
		remaining = remaining.Sub(amount)

		name := line.Label
		if name == "" {
			name = rule.Name
		}
		proposals = append(proposals, domain.WriteOffProposal{
			Name:                 name,
			Account:              line.Account,
			Partner:              partner,
			Currency:             cur,
			AmountInCurrency:     amount,
			Taxes:                line.Taxes,
			ForcePriceIncluded:   line.ForceTaxIncluded,
			AnalyticDistribution: line.AnalyticDistribution,
		})
	}
	return proposals, nil
}
