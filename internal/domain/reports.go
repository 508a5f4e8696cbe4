package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the validity of a working set. It is derived, never stored.
type State string

const (
	StateInvalid    State = "invalid"
	StateValid      State = "valid"
	StateReconciled State = "reconciled"
)

// DisplayFlags tell a renderer which columns and banners to show.
type DisplayFlags struct {
	ReadOnly            bool `json:"read_only"`
	ShowForeignCurrency bool `json:"show_foreign_currency"`
	ShowTaxes           bool `json:"show_taxes"`
	ShowAnalytic        bool `json:"show_analytic"`
	EarlyPaymentApplied bool `json:"early_payment_applied"`
	PartialMatched      bool `json:"partial_matched"`
	ToCheck             bool `json:"to_check"`
}

// Snapshot is the renderable view of a working set.
type Snapshot struct {
	TransactionID string               `json:"transaction_id"`
	PaymentRef    string               `json:"payment_ref"`
	Lines         []ReconciliationLine `json:"lines"`
	DisplayFlags  DisplayFlags         `json:"display_flags"`
	State         State                `json:"state"`
	EditedIndex   *int                 `json:"edited_index,omitempty"`
}

// JournalItem is one ledger line of a posted entry.
type JournalItem struct {
	Name                 string                     `json:"name"`
	Role                 LineRole                   `json:"role"`
	Account              Account                    `json:"account"`
	Partner              *Partner                   `json:"partner,omitempty"`
	Currency             Currency                   `json:"currency"`
	AmountInCurrency     decimal.Decimal            `json:"amount_in_currency"`
	Balance              decimal.Decimal            `json:"balance"`
	Taxes                []Tax                      `json:"taxes,omitempty"`
	TaxTags              []string                   `json:"tax_tags,omitempty"`
	TaxRepartition       *TaxRepartition            `json:"tax_repartition,omitempty"`
	AnalyticDistribution map[string]decimal.Decimal `json:"analytic_distribution,omitempty"`
	SourceEntryRef       string                     `json:"source_entry_ref,omitempty"`
}

// JournalEntry is the payload posted when a working set is committed.
type JournalEntry struct {
	TransactionID string        `json:"transaction_id"`
	JournalID     string        `json:"journal_id"`
	Date          time.Time     `json:"date"`
	Ref           string        `json:"ref"`
	Partner       *Partner      `json:"partner,omitempty"`
	ToCheck       bool          `json:"to_check"`
	Items         []JournalItem `json:"items"`
}

// ReconcileLink pairs a posted item with the source entry it settles.
type ReconcileLink struct {
	ItemPosition     int             `json:"item_position"` // index into JournalEntry.Items
	SourceEntryRef   string          `json:"source_entry_ref"`
	Currency         Currency        `json:"currency"`
	AmountInCurrency decimal.Decimal `json:"amount_in_currency"`
	Balance          decimal.Decimal `json:"balance"`
}

// PostedEntry is a committed journal entry as read back from the ledger.
type PostedEntry struct {
	Ref   string        `json:"ref"`
	Items []JournalItem `json:"items"`
}
