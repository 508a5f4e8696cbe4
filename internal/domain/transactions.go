package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO currency with its configured decimal precision.
type Currency struct {
	Code     string `json:"code" yaml:"code"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
}

// Round rounds half away from zero to the currency precision.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Decimals)
}

// IsZero reports whether amount rounds to zero in this currency.
func (c Currency) IsZero(amount decimal.Decimal) bool {
	return c.Round(amount).IsZero()
}

// CompareAmounts compares a and b after rounding their difference.
// It returns -1, 0 or 1.
func (c Currency) CompareAmounts(a, b decimal.Decimal) int {
	diff := c.Round(a.Sub(b))
	return diff.Sign()
}

// Is reports whether both currencies share the same code.
func (c Currency) Is(other Currency) bool {
	return c.Code == other.Code
}

// IsSet reports whether the currency has been configured.
func (c Currency) IsSet() bool {
	return c.Code != ""
}

// AccountType classifies accounts for routing open balances.
type AccountType string

const (
	AccountTypeReceivable AccountType = "receivable"
	AccountTypePayable    AccountType = "payable"
	AccountTypeLiquidity  AccountType = "liquidity"
	AccountTypeSuspense   AccountType = "suspense"
	AccountTypeIncome     AccountType = "income"
	AccountTypeExpense    AccountType = "expense"
	AccountTypeTax        AccountType = "tax"
	AccountTypeOther      AccountType = "other"
)

// Account is a ledger account.
type Account struct {
	ID   string      `json:"id" yaml:"id"`
	Code string      `json:"code" yaml:"code"`
	Name string      `json:"name" yaml:"name"`
	Type AccountType `json:"type" yaml:"type"`
}

// IsSet reports whether the account has an identity.
func (a Account) IsSet() bool {
	return a.ID != ""
}

// Partner is a customer or vendor.
type Partner struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ReceivableAccount Account `json:"receivable_account"`
	PayableAccount    Account `json:"payable_account"`
}

// Company holds the company-wide accounting defaults.
type Company struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Currency                Currency `json:"currency"`
	ExchangeGainAccount     Account  `json:"exchange_gain_account"`
	ExchangeLossAccount     Account  `json:"exchange_loss_account"`
	EarlyPaymentGainAccount Account  `json:"early_payment_gain_account"`
	EarlyPaymentLossAccount Account  `json:"early_payment_loss_account"`
}

// Journal is a bank or cash journal.
type Journal struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Currency         Currency `json:"currency"` // zero value means company currency
	LiquidityAccount Account  `json:"liquidity_account"`
	SuspenseAccount  Account  `json:"suspense_account"`
	Company          Company  `json:"company"`
}

// EffectiveCurrency returns the journal currency, defaulting to the company one.
func (j Journal) EffectiveCurrency() Currency {
	if j.Currency.IsSet() {
		return j.Currency
	}
	return j.Company.Currency
}

// Transaction is the bank statement line being reconciled.
type Transaction struct {
	ID              string          `json:"id"`
	PaymentRef      string          `json:"payment_ref"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"` // journal currency
	AmountCurrency  decimal.Decimal `json:"amount_currency"`
	ForeignCurrency *Currency       `json:"foreign_currency,omitempty"`
	Journal         Journal         `json:"journal"`
	Partner         *Partner        `json:"partner,omitempty"`
	IsReconciled    bool            `json:"is_reconciled"`
	PostedEntry     *PostedEntry    `json:"posted_entry,omitempty"`
}

// TransactionCurrency is the foreign currency when set, the journal currency otherwise.
func (t Transaction) TransactionCurrency() Currency {
	if t.ForeignCurrency != nil && t.ForeignCurrency.IsSet() {
		return *t.ForeignCurrency
	}
	return t.Journal.EffectiveCurrency()
}

// SameLiquidity reports whether the fields feeding the liquidity line are unchanged.
func (t Transaction) SameLiquidity(other Transaction) bool {
	if !t.Amount.Equal(other.Amount) || !t.AmountCurrency.Equal(other.AmountCurrency) {
		return false
	}
	if !t.Date.Equal(other.Date) || t.Journal.ID != other.Journal.ID {
		return false
	}
	return t.TransactionCurrency().Is(other.TransactionCurrency())
}

// AccountingAmounts is the transaction amount expressed in the three relevant currencies.
type AccountingAmounts struct {
	TransactionAmount   decimal.Decimal
	TransactionCurrency Currency
	JournalAmount       decimal.Decimal
	JournalCurrency     Currency
	CompanyAmount       decimal.Decimal
	CompanyCurrency     Currency
}
