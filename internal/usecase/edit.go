package usecase

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// LineField names an editable field of a reconciliation line.
type LineField string

const (
	FieldName                 LineField = "name"
	FieldAccount              LineField = "account"
	FieldPartner              LineField = "partner"
	FieldCurrency             LineField = "currency"
	FieldAmountInCurrency     LineField = "amount_in_currency"
	FieldBalance              LineField = "balance"
	FieldTaxes                LineField = "taxes"
	FieldAnalyticDistribution LineField = "analytic_distribution"
	FieldForcePriceIncluded   LineField = "force_price_included"
)

// liquidity lines only accept cosmetic edits
var liquidityEditable = map[LineField]bool{
	FieldName:                 true,
	FieldPartner:              true,
	FieldAnalyticDistribution: true,
}

// editing one of these on the auto-balance line makes it a manual line
var claimingFields = map[LineField]bool{
	FieldAccount:          true,
	FieldPartner:          true,
	FieldCurrency:         true,
	FieldAmountInCurrency: true,
	FieldBalance:          true,
	FieldTaxes:            true,
}

// EditLine sets field of the line at index to value. Editing the account,
// partner, currency, amounts or taxes of the auto-balance line turns it into a
// manual line with price-included taxes.
func (s *Session) EditLine(ctx context.Context, index int, field LineField, value any) error {
	return s.mutate("edit_line", func() error {
		line := s.ws.Line(index)
		if line == nil {
			return domain.NewDomainError(domain.ErrorLineNotFound, "index", fmt.Sprintf("no line with index %d", index))
		}
		if line.Role == domain.RoleLiquidity && !liquidityEditable[field] {
			return domain.NewDomainError(domain.ErrorInvalidInput, string(field), "field is not editable on the liquidity line")
		}

		hadTaxes := line.HasTaxes()
		if line.Role == domain.RoleAutoBalance && claimingFields[field] {
			line.Role = domain.RoleManual
			line.ForcePriceIncluded = true
		}
		idx := index
		s.ws.CurrentlyEditedIndex = &idx

		if err := s.applyEdit(ctx, line, field, value); err != nil {
			return err
		}

		if hadTaxes || line.HasTaxes() {
			if err := s.recomputeTaxes(ctx); err != nil {
				return err
			}
		}
		s.recomputeAutoBalance()
		return nil
	})
}

func (s *Session) applyEdit(ctx context.Context, line *domain.ReconciliationLine, field LineField, value any) error {
	invalid := func(msg string) error {
		return domain.NewDomainError(domain.ErrorInvalidInput, string(field), msg)
	}

	switch field {
	case FieldName:
		v, ok := value.(string)
		if !ok {
			return invalid("expected a string")
		}
		line.Name = v

	case FieldAccount:
		v, ok := value.(domain.Account)
		if !ok || !v.IsSet() {
			return invalid("expected an account")
		}
		line.Account = v

	case FieldPartner:
		v, ok := value.(*domain.Partner)
		if !ok {
			return invalid("expected a partner")
		}
		line.Partner = v
		if line.Role == domain.RoleLiquidity {
			s.ws.Partner = v
		}

	case FieldCurrency:
		v, ok := value.(domain.Currency)
		if !ok || !v.IsSet() {
			return invalid("expected a currency")
		}
		if line.Role == domain.RoleNewSourceEntry {
			return invalid("the currency of a matched entry cannot change")
		}
		line.Currency = v
		line.AmountInCurrency = v.Round(line.AmountInCurrency)
		balance, err := s.balanceFor(ctx, v, line.AmountInCurrency)
		if err != nil {
			return err
		}
		line.Balance = balance

	case FieldAmountInCurrency:
		v, ok := value.(decimal.Decimal)
		if !ok {
			return invalid("expected a decimal amount")
		}
		return s.editAmount(ctx, line, v)

	case FieldBalance:
		v, ok := value.(decimal.Decimal)
		if !ok {
			return invalid("expected a decimal balance")
		}
		s.editBalance(line, v)

	case FieldTaxes:
		v, ok := value.([]domain.Tax)
		if !ok {
			return invalid("expected a list of taxes")
		}
		if line.Role != domain.RoleManual {
			return invalid("only manual lines carry taxes")
		}
		return s.editTaxes(ctx, line, v)

	case FieldAnalyticDistribution:
		v, ok := value.(map[string]decimal.Decimal)
		if !ok {
			return invalid("expected an analytic distribution")
		}
		line.AnalyticDistribution = v

	case FieldForcePriceIncluded:
		v, ok := value.(bool)
		if !ok {
			return invalid("expected a boolean")
		}
		line.ForcePriceIncluded = v
		if priceIncluded(line) {
			line.TaxBaseAmount = line.AmountInCurrency
		} else {
			line.TaxBaseAmount = decimal.Zero
		}

	default:
		return invalid("unknown field")
	}
	return nil
}

// editAmount sets a user-typed amount. A source line is clamped to its full
// residual so it can never over-reconcile the entry.
func (s *Session) editAmount(ctx context.Context, line *domain.ReconciliationLine, amount decimal.Decimal) error {
	amount = line.Currency.Round(amount)
	if line.Role == domain.RoleNewSourceEntry {
		full := line.SourceAmountInCurrency
		if amount.Sign() != full.Sign() || amount.Abs().GreaterThan(full.Abs()) {
			amount = full
		}
		line.ManuallyModified = true
	}

	balance, err := s.rederiveBalance(ctx, line, amount)
	if err != nil {
		return err
	}
	line.AmountInCurrency = amount
	line.Balance = balance

	if priceIncluded(line) {
		line.TaxBaseAmount = amount
	}
	return nil
}

// editBalance sets a user-typed company-currency balance. A source line is
// clamped to its full residual like editAmount does.
func (s *Session) editBalance(line *domain.ReconciliationLine, balance decimal.Decimal) {
	company := s.ws.Amounts.CompanyCurrency
	balance = company.Round(balance)

	switch {
	case line.Role == domain.RoleNewSourceEntry:
		full := line.SourceBalance
		if balance.Sign() != full.Sign() || balance.Abs().GreaterThan(full.Abs()) {
			balance = full
		}
		switch {
		case balance.Equal(full):
			line.AmountInCurrency = line.SourceAmountInCurrency
		case line.Currency.Is(company):
			line.AmountInCurrency = balance
		default:
			line.AmountInCurrency = scale(balance, line.SourceAmountInCurrency, line.SourceBalance, line.Currency)
		}
		line.ManuallyModified = true
	case line.Currency.Is(company):
		line.AmountInCurrency = balance
	}
	line.Balance = balance
}

// editTaxes replaces the taxes of a manual line. Clearing them restores the
// amount the user typed before the taxes were extracted.
func (s *Session) editTaxes(ctx context.Context, line *domain.ReconciliationLine, taxes []domain.Tax) error {
	line.Taxes = taxes
	if len(taxes) > 0 {
		if priceIncluded(line) && line.TaxBaseAmount.IsZero() {
			line.TaxBaseAmount = line.AmountInCurrency
		}
		return nil
	}

	if !line.TaxBaseAmount.IsZero() {
		if err := s.setAmount(ctx, line, line.TaxBaseAmount); err != nil {
			return err
		}
	}
	line.TaxBaseAmount = decimal.Zero
	line.TaxTags = nil
	return nil
}
