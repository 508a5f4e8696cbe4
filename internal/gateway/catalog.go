package gateway

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"bank-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type catalogFile struct {
	Company         companyFixture          `yaml:"company"`
	Currencies      []domain.Currency       `yaml:"currencies"`
	Accounts        []domain.Account        `yaml:"accounts"`
	Partners        []partnerFixture        `yaml:"partners"`
	Journals        []journalFixture        `yaml:"journals"`
	Taxes           []taxFixture            `yaml:"taxes"`
	ReconcileModels []reconcileModelFixture `yaml:"reconcile_models"`
	Rates           []rateFixture           `yaml:"rates"`
	SourceEntries   []sourceEntryFixture    `yaml:"source_entries"`
}

type companyFixture struct {
	ID                      string `yaml:"id"`
	Name                    string `yaml:"name"`
	Currency                string `yaml:"currency"`
	ExchangeGainAccount     string `yaml:"exchange_gain_account"`
	ExchangeLossAccount     string `yaml:"exchange_loss_account"`
	EarlyPaymentGainAccount string `yaml:"early_payment_gain_account"`
	EarlyPaymentLossAccount string `yaml:"early_payment_loss_account"`
}

type partnerFixture struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	ReceivableAccount string `yaml:"receivable_account"`
	PayableAccount    string `yaml:"payable_account"`
}

type journalFixture struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	Currency         string `yaml:"currency"`
	LiquidityAccount string `yaml:"liquidity_account"`
	SuspenseAccount  string `yaml:"suspense_account"`
}

type taxFixture struct {
	ID              string               `yaml:"id"`
	Name            string               `yaml:"name"`
	AmountType      domain.TaxAmountType `yaml:"amount_type"`
	Amount          string               `yaml:"amount"`
	Use             domain.TaxUse        `yaml:"use"`
	PriceInclude    bool                 `yaml:"price_include"`
	Account         string               `yaml:"account"`
	InvoiceTags     []string             `yaml:"invoice_tags"`
	RefundTags      []string             `yaml:"refund_tags"`
	BaseInvoiceTags []string             `yaml:"base_invoice_tags"`
	BaseRefundTags  []string             `yaml:"base_refund_tags"`
}

type reconcileModelFixture struct {
	ID            string                      `yaml:"id"`
	Name          string                      `yaml:"name"`
	Sequence      int                         `yaml:"sequence"`
	RuleType      domain.RuleType             `yaml:"rule_type"`
	AutoReconcile bool                        `yaml:"auto_reconcile"`
	ToCheck       bool                        `yaml:"to_check"`
	Journals      []string                    `yaml:"journals"`
	MatchLabel    string                      `yaml:"match_label"`
	MatchPartner  bool                        `yaml:"match_partner"`
	MatchNature   string                      `yaml:"match_nature"`
	Lines         []reconcileModelLineFixture `yaml:"lines"`
}

type reconcileModelLineFixture struct {
	Label            string                `yaml:"label"`
	Account          string                `yaml:"account"`
	AmountType       domain.RuleAmountType `yaml:"amount_type"`
	Amount           string                `yaml:"amount"`
	Taxes            []string              `yaml:"taxes"`
	ForceTaxIncluded bool                  `yaml:"force_tax_included"`
	Analytic         map[string]string     `yaml:"analytic_distribution"`
}

type rateFixture struct {
	Currency string `yaml:"currency"`
	Date     string `yaml:"date"`
	Rate     string `yaml:"rate"`
}

type sourceEntryFixture struct {
	ID                     string               `yaml:"id"`
	Name                   string               `yaml:"name"`
	Partner                string               `yaml:"partner"`
	Account                string               `yaml:"account"`
	Currency               string               `yaml:"currency"`
	AmountCurrency         string               `yaml:"amount_currency"`
	Balance                string               `yaml:"balance"`
	AmountResidualCurrency string               `yaml:"amount_residual_currency"`
	AmountResidual         string               `yaml:"amount_residual"`
	Date                   string               `yaml:"date"`
	DueDate                string               `yaml:"due_date"`
	EarlyPayment           *earlyPaymentFixture `yaml:"early_payment"`
}

type earlyPaymentFixture struct {
	DiscountDate             string         `yaml:"discount_date"`
	DiscountedAmountCurrency string         `yaml:"discounted_amount_currency"`
	Shares                   []shareFixture `yaml:"shares"`
}

type shareFixture struct {
	Name             string   `yaml:"name"`
	Account          string   `yaml:"account"`
	AmountInCurrency string   `yaml:"amount_in_currency"`
	Taxes            []string `yaml:"taxes"`
	Tax              string   `yaml:"tax"` // set on a tax share
}

// CurrencyRate is one row of the rate table.
type CurrencyRate struct {
	Currency string
	Date     time.Time
	Rate     decimal.Decimal
}

// Catalog is the accounting reference data loaded from YAML: company,
// currencies, accounts, partners, journals, taxes and reconcile models.
// It also carries the rate and source entry fixtures used to seed a ledger.
type Catalog struct {
	company       domain.Company
	currencies    map[string]domain.Currency
	accounts      map[string]domain.Account
	partners      map[string]*domain.Partner
	journals      map[string]domain.Journal
	taxes         map[string]domain.Tax
	models        []domain.ReconcileModel
	rates         []CurrencyRate
	sourceEntries []domain.SourceEntry
}

// LoadCatalog reads and resolves the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog resolves a YAML catalog document. Every reference must point
// to a declared record.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		currencies: make(map[string]domain.Currency, len(file.Currencies)),
		accounts:   make(map[string]domain.Account, len(file.Accounts)),
		partners:   make(map[string]*domain.Partner, len(file.Partners)),
		journals:   make(map[string]domain.Journal, len(file.Journals)),
		taxes:      make(map[string]domain.Tax, len(file.Taxes)),
	}
	for _, cur := range file.Currencies {
		c.currencies[cur.Code] = cur
	}
	for _, acc := range file.Accounts {
		c.accounts[acc.ID] = acc
	}

	if err := c.resolveCompany(file.Company); err != nil {
		return nil, err
	}
	if err := c.resolvePartners(file.Partners); err != nil {
		return nil, err
	}
	if err := c.resolveJournals(file.Journals); err != nil {
		return nil, err
	}
	if err := c.resolveTaxes(file.Taxes); err != nil {
		return nil, err
	}
	if err := c.resolveModels(file.ReconcileModels); err != nil {
		return nil, err
	}
	if err := c.resolveRates(file.Rates); err != nil {
		return nil, err
	}
	if err := c.resolveSourceEntries(file.SourceEntries); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) resolveCompany(f companyFixture) error {
	cur, err := c.Currency(f.Currency)
	if err != nil {
		return fmt.Errorf("company: %w", err)
	}
	c.company = domain.Company{ID: f.ID, Name: f.Name, Currency: cur}

	for _, ref := range []struct {
		id  string
		dst *domain.Account
	}{
		{f.ExchangeGainAccount, &c.company.ExchangeGainAccount},
		{f.ExchangeLossAccount, &c.company.ExchangeLossAccount},
		{f.EarlyPaymentGainAccount, &c.company.EarlyPaymentGainAccount},
		{f.EarlyPaymentLossAccount, &c.company.EarlyPaymentLossAccount},
	} {
		if ref.id == "" {
			continue
		}
		acc, err := c.Account(ref.id)
		if err != nil {
			return fmt.Errorf("company: %w", err)
		}
		*ref.dst = acc
	}
	return nil
}

func (c *Catalog) resolvePartners(fixtures []partnerFixture) error {
	for _, f := range fixtures {
		p := &domain.Partner{ID: f.ID, Name: f.Name}
		if f.ReceivableAccount != "" {
			acc, err := c.Account(f.ReceivableAccount)
			if err != nil {
				return fmt.Errorf("partner %s: %w", f.ID, err)
			}
			p.ReceivableAccount = acc
		}
		if f.PayableAccount != "" {
			acc, err := c.Account(f.PayableAccount)
			if err != nil {
				return fmt.Errorf("partner %s: %w", f.ID, err)
			}
			p.PayableAccount = acc
		}
		c.partners[f.ID] = p
	}
	return nil
}

func (c *Catalog) resolveJournals(fixtures []journalFixture) error {
	for _, f := range fixtures {
		j := domain.Journal{ID: f.ID, Name: f.Name, Company: c.company}
		if f.Currency != "" {
			cur, err := c.Currency(f.Currency)
			if err != nil {
				return fmt.Errorf("journal %s: %w", f.ID, err)
			}
			j.Currency = cur
		}
		liquidity, err := c.Account(f.LiquidityAccount)
		if err != nil {
			return fmt.Errorf("journal %s: %w", f.ID, err)
		}
		j.LiquidityAccount = liquidity
		suspense, err := c.Account(f.SuspenseAccount)
		if err != nil {
			return fmt.Errorf("journal %s: %w", f.ID, err)
		}
		j.SuspenseAccount = suspense
		c.journals[f.ID] = j
	}
	return nil
}

func (c *Catalog) resolveTaxes(fixtures []taxFixture) error {
	for _, f := range fixtures {
		amount, err := parseDecimal(f.Amount)
		if err != nil {
			return fmt.Errorf("tax %s: %w", f.ID, err)
		}
		tax := domain.Tax{
			ID:              f.ID,
			Name:            f.Name,
			AmountType:      f.AmountType,
			Amount:          amount,
			Use:             f.Use,
			PriceInclude:    f.PriceInclude,
			InvoiceTags:     f.InvoiceTags,
			RefundTags:      f.RefundTags,
			BaseInvoiceTags: f.BaseInvoiceTags,
			BaseRefundTags:  f.BaseRefundTags,
		}
		if f.Account != "" {
			acc, err := c.Account(f.Account)
			if err != nil {
				return fmt.Errorf("tax %s: %w", tax.ID, err)
			}
			tax.Account = acc
		}
		c.taxes[tax.ID] = tax
	}
	return nil
}

func (c *Catalog) resolveModels(fixtures []reconcileModelFixture) error {
	for _, f := range fixtures {
		m := domain.ReconcileModel{
			ID:            f.ID,
			Name:          f.Name,
			Sequence:      f.Sequence,
			RuleType:      f.RuleType,
			AutoReconcile: f.AutoReconcile,
			ToCheck:       f.ToCheck,
			JournalIDs:    f.Journals,
			MatchLabel:    f.MatchLabel,
			MatchPartner:  f.MatchPartner,
			MatchNature:   f.MatchNature,
		}
		for i, lf := range f.Lines {
			line, err := c.resolveModelLine(lf)
			if err != nil {
				return fmt.Errorf("reconcile model %s line %d: %w", f.ID, i, err)
			}
			m.Lines = append(m.Lines, line)
		}
		c.models = append(c.models, m)
	}
	sort.SliceStable(c.models, func(i, j int) bool {
		return c.models[i].Sequence < c.models[j].Sequence
	})
	return nil
}

func (c *Catalog) resolveModelLine(f reconcileModelLineFixture) (domain.ReconcileModelLine, error) {
	acc, err := c.Account(f.Account)
	if err != nil {
		return domain.ReconcileModelLine{}, err
	}
	amount, err := parseDecimal(f.Amount)
	if err != nil {
		return domain.ReconcileModelLine{}, err
	}
	taxes, err := c.taxList(f.Taxes)
	if err != nil {
		return domain.ReconcileModelLine{}, err
	}

	line := domain.ReconcileModelLine{
		Label:            f.Label,
		Account:          acc,
		AmountType:       f.AmountType,
		Amount:           amount,
		Taxes:            taxes,
		ForceTaxIncluded: f.ForceTaxIncluded,
	}
	if len(f.Analytic) > 0 {
		line.AnalyticDistribution = make(map[string]decimal.Decimal, len(f.Analytic))
		for k, v := range f.Analytic {
			pct, err := parseDecimal(v)
			if err != nil {
				return domain.ReconcileModelLine{}, err
			}
			line.AnalyticDistribution[k] = pct
		}
	}
	return line, nil
}

func (c *Catalog) resolveRates(fixtures []rateFixture) error {
	for _, f := range fixtures {
		date, err := time.Parse(dateLayout, f.Date)
		if err != nil {
			return fmt.Errorf("rate %s: could not parse date '%s': %w", f.Currency, f.Date, err)
		}
		rate, err := parseDecimal(f.Rate)
		if err != nil {
			return fmt.Errorf("rate %s: %w", f.Currency, err)
		}
		c.rates = append(c.rates, CurrencyRate{Currency: f.Currency, Date: date, Rate: rate})
	}
	return nil
}

func (c *Catalog) resolveSourceEntries(fixtures []sourceEntryFixture) error {
	for _, f := range fixtures {
		entry, err := c.resolveSourceEntry(f)
		if err != nil {
			return fmt.Errorf("source entry %s: %w", f.ID, err)
		}
		c.sourceEntries = append(c.sourceEntries, entry)
	}
	return nil
}

func (c *Catalog) resolveSourceEntry(f sourceEntryFixture) (domain.SourceEntry, error) {
	var err error
	entry := domain.SourceEntry{ID: f.ID, Name: f.Name}

	if f.Partner != "" {
		if entry.Partner, err = c.Partner(f.Partner); err != nil {
			return entry, err
		}
	}
	if entry.Account, err = c.Account(f.Account); err != nil {
		return entry, err
	}
	if entry.Currency, err = c.Currency(f.Currency); err != nil {
		return entry, err
	}
	if entry.AmountCurrency, err = parseDecimal(f.AmountCurrency); err != nil {
		return entry, err
	}
	if entry.Balance, err = parseDecimal(f.Balance); err != nil {
		return entry, err
	}

	// An untouched entry is open for its full amount.
	entry.AmountResidualCurrency, entry.AmountResidual = entry.AmountCurrency, entry.Balance
	if f.AmountResidualCurrency != "" {
		if entry.AmountResidualCurrency, err = parseDecimal(f.AmountResidualCurrency); err != nil {
			return entry, err
		}
	}
	if f.AmountResidual != "" {
		if entry.AmountResidual, err = parseDecimal(f.AmountResidual); err != nil {
			return entry, err
		}
	}

	if entry.Date, err = time.Parse(dateLayout, f.Date); err != nil {
		return entry, fmt.Errorf("could not parse date '%s': %w", f.Date, err)
	}
	if f.DueDate != "" {
		if entry.DueDate, err = time.Parse(dateLayout, f.DueDate); err != nil {
			return entry, fmt.Errorf("could not parse due date '%s': %w", f.DueDate, err)
		}
	}

	if f.EarlyPayment != nil {
		terms, err := c.resolveEarlyPayment(*f.EarlyPayment)
		if err != nil {
			return entry, err
		}
		entry.EarlyPayment = &terms
	}
	return entry, nil
}

func (c *Catalog) resolveEarlyPayment(f earlyPaymentFixture) (domain.EarlyPaymentTerms, error) {
	var terms domain.EarlyPaymentTerms
	var err error
	if terms.DiscountDate, err = time.Parse(dateLayout, f.DiscountDate); err != nil {
		return terms, fmt.Errorf("could not parse discount date '%s': %w", f.DiscountDate, err)
	}
	if terms.DiscountedAmountCurrency, err = parseDecimal(f.DiscountedAmountCurrency); err != nil {
		return terms, err
	}
	for _, sf := range f.Shares {
		share := domain.DiscountShare{Name: sf.Name}
		if share.Account, err = c.Account(sf.Account); err != nil {
			return terms, err
		}
		if share.AmountInCurrency, err = parseDecimal(sf.AmountInCurrency); err != nil {
			return terms, err
		}
		if share.Taxes, err = c.taxList(sf.Taxes); err != nil {
			return terms, err
		}
		if sf.Tax != "" {
			if _, err := c.Tax(sf.Tax); err != nil {
				return terms, err
			}
			share.TaxRepartition = &domain.TaxRepartition{TaxID: sf.Tax}
		}
		terms.Shares = append(terms.Shares, share)
	}
	return terms, nil
}

func (c *Catalog) taxList(ids []string) ([]domain.Tax, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	taxes := make([]domain.Tax, 0, len(ids))
	for _, id := range ids {
		tax, err := c.Tax(id)
		if err != nil {
			return nil, err
		}
		taxes = append(taxes, tax)
	}
	return taxes, nil
}

// Company returns the company settings.
func (c *Catalog) Company() domain.Company {
	return c.company
}

// Currency resolves a currency by ISO code.
func (c *Catalog) Currency(code string) (domain.Currency, error) {
	cur, ok := c.currencies[code]
	if !ok {
		return domain.Currency{}, notFound("currency", code)
	}
	return cur, nil
}

// Account resolves an account by id.
func (c *Catalog) Account(id string) (domain.Account, error) {
	acc, ok := c.accounts[id]
	if !ok {
		return domain.Account{}, notFound("account", id)
	}
	return acc, nil
}

// Partner resolves a partner by id.
func (c *Catalog) Partner(id string) (*domain.Partner, error) {
	p, ok := c.partners[id]
	if !ok {
		return nil, notFound("partner", id)
	}
	copied := *p
	return &copied, nil
}

// Journal resolves a journal by id.
func (c *Catalog) Journal(id string) (domain.Journal, error) {
	j, ok := c.journals[id]
	if !ok {
		return domain.Journal{}, notFound("journal", id)
	}
	return j, nil
}

// Tax resolves a tax by id.
func (c *Catalog) Tax(id string) (domain.Tax, error) {
	tax, ok := c.taxes[id]
	if !ok {
		return domain.Tax{}, notFound("tax", id)
	}
	return tax, nil
}

// FetchReconcileModel resolves a reconcile model by id.
func (c *Catalog) FetchReconcileModel(ctx context.Context, id string) (domain.ReconcileModel, error) {
	for _, m := range c.models {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.ReconcileModel{}, notFound("reconcile model", id)
}

// ReconcileModels returns the models ordered by sequence.
func (c *Catalog) ReconcileModels() []domain.ReconcileModel {
	return append([]domain.ReconcileModel(nil), c.models...)
}

// Rates returns the rate fixtures.
func (c *Catalog) Rates() []CurrencyRate {
	return append([]CurrencyRate(nil), c.rates...)
}

// SourceEntries returns the source entry fixtures.
func (c *Catalog) SourceEntries() []domain.SourceEntry {
	return append([]domain.SourceEntry(nil), c.sourceEntries...)
}

func notFound(kind, id string) error {
	return domain.NewDomainError(domain.ErrorNotFound, kind, fmt.Sprintf("unknown %s '%s'", kind, id))
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse amount '%s': %w", s, err)
	}
	return d, nil
}
