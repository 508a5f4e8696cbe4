package gateway

import (
	"context"
	"fmt"
	"strings"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxEngine computes base subtotals and tax lines. Tax lines sharing a
// grouping key (tax, account, partner, currency, refund) are summed into one
// line and matched to existing tax lines by that key.
type TaxEngine struct{}

// NewTaxEngine creates a tax engine.
func NewTaxEngine() *TaxEngine {
	return &TaxEngine{}
}

type taxBucket struct {
	key      string
	proposal domain.TaxLineProposal
}

// EvaluateTaxes returns the base updates and the tax lines to create, update
// and delete so the working set matches the taxes of its base lines.
func (e *TaxEngine) EvaluateTaxes(ctx context.Context, req domain.TaxEvaluationRequest) (domain.TaxEvaluation, error) {
	var result domain.TaxEvaluation
	var buckets []*taxBucket
	byKey := make(map[string]*taxBucket)

	for _, base := range req.BaseLines {
		subtotal, amounts, err := computeTaxes(base)
		if err != nil {
			return domain.TaxEvaluation{}, err
		}

		update := domain.TaxBaseUpdate{LineIndex: base.LineIndex, AmountInCurrency: subtotal}
		for i, tax := range base.Taxes {
			tags := tax.BaseInvoiceTags
			if base.IsRefund {
				tags = tax.BaseRefundTags
			}
			update.TaxTags = appendUnique(update.TaxTags, tags...)

			amount := amounts[i]
			if base.Currency.IsZero(amount) {
				continue
			}
			account := tax.Account
			if !account.IsSet() {
				account = base.Account
			}
			key := groupingKey(tax, account, base.Partner, base.Currency, base.IsRefund)
			bucket, ok := byKey[key]
			if !ok {
				taxTags := tax.InvoiceTags
				if base.IsRefund {
					taxTags = tax.RefundTags
				}
				bucket = &taxBucket{key: key, proposal: domain.TaxLineProposal{
					Name:        tax.Name,
					Repartition: domain.TaxRepartition{TaxID: tax.ID, GroupingKey: key},
					Account:     account,
					Partner:     base.Partner,
					Currency:    base.Currency,
					TaxTags:     taxTags,
				}}
				byKey[key] = bucket
				buckets = append(buckets, bucket)
			}
			bucket.proposal.AmountInCurrency = bucket.proposal.AmountInCurrency.Add(amount)
		}
		result.BaseLinesToUpdate = append(result.BaseLinesToUpdate, update)
	}

	matched := make(map[string]bool, len(req.TaxLines))
	for _, existing := range req.TaxLines {
		bucket, ok := byKey[existing.Repartition.GroupingKey]
		if !ok || matched[bucket.key] {
			result.TaxLinesToDelete = append(result.TaxLinesToDelete, existing.LineIndex)
			continue
		}
		matched[bucket.key] = true
		result.TaxLinesToUpdate = append(result.TaxLinesToUpdate, domain.TaxLineUpdate{
			LineIndex:        existing.LineIndex,
			AmountInCurrency: bucket.proposal.AmountInCurrency,
			TaxTags:          bucket.proposal.TaxTags,
		})
	}
	for _, bucket := range buckets {
		if !matched[bucket.key] {
			result.TaxLinesToCreate = append(result.TaxLinesToCreate, bucket.proposal)
		}
	}
	return result, nil
}

// computeTaxes returns the subtotal of base and the amount of each of its
// taxes. In price-included mode the subtotal is extracted from the price and
// the last tax absorbs the rounding so subtotal plus taxes equals the price.
func computeTaxes(base domain.TaxBaseInput) (decimal.Decimal, []decimal.Decimal, error) {
	cur := base.Currency
	price := base.PriceUnit
	sign := decimal.NewFromInt(int64(price.Sign()))
	amounts := make([]decimal.Decimal, len(base.Taxes))

	fixed, pct := decimal.Zero, decimal.Zero
	for _, tax := range base.Taxes {
		switch tax.AmountType {
		case domain.TaxAmountFixed:
			fixed = fixed.Add(tax.Amount.Mul(sign))
		case domain.TaxAmountPercent:
			pct = pct.Add(tax.Amount)
		default:
			return decimal.Zero, nil, domain.NewDomainError(domain.ErrorInvalidInput, "amount_type",
				fmt.Sprintf("unsupported amount type %q on tax %s", tax.AmountType, tax.ID))
		}
	}

	subtotal := price
	if base.PriceIncluded {
		subtotal = cur.Round(price.Sub(fixed).Div(decimal.NewFromInt(1).Add(pct.Div(hundred))))
	}

	total := decimal.Zero
	for i, tax := range base.Taxes {
		switch tax.AmountType {
		case domain.TaxAmountFixed:
			amounts[i] = cur.Round(tax.Amount.Mul(sign))
		case domain.TaxAmountPercent:
			amounts[i] = cur.Round(subtotal.Mul(tax.Amount).Div(hundred))
		}
		total = total.Add(amounts[i])
	}

	if base.PriceIncluded && len(amounts) > 0 {
		last := len(amounts) - 1
		diff := price.Sub(subtotal).Sub(total)
		amounts[last] = amounts[last].Add(diff)
	}
	return subtotal, amounts, nil
}

func groupingKey(tax domain.Tax, account domain.Account, partner *domain.Partner, cur domain.Currency, refund bool) string {
	return strings.Join([]string{
		tax.ID, account.ID, partnerRef(partner), cur.Code, fmt.Sprint(refund),
	}, "|")
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
