package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bank-reconciliation/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerStore persists rates, statement lines, source entries and posted
// journal entries in SQLite. Reference data is resolved through the catalog.
type LedgerStore struct {
	conn    *Connection
	catalog *Catalog
}

// NewLedgerStore creates a store over conn.
func NewLedgerStore(conn *Connection, catalog *Catalog) *LedgerStore {
	return &LedgerStore{conn: conn, catalog: catalog}
}

// RateAt returns the latest rate of currency on or before date. The company
// currency always has rate one.
func (s *LedgerStore) RateAt(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	if currency == s.catalog.Company().Currency.Code {
		return decimal.NewFromInt(1), nil
	}

	var raw string
	err := s.conn.db.QueryRowContext(ctx, `
		SELECT rate FROM currency_rates
		WHERE currency = ? AND rate_date <= ?
		ORDER BY rate_date DESC
		LIMIT 1`,
		currency, date.Format(dateLayout),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.NewDomainError(domain.ErrorRateNotFound, currency,
			fmt.Sprintf("no rate for %s on %s", currency, date.Format(dateLayout)))
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query rate: %w", err)
	}
	return parseDecimal(raw)
}

// SaveRates upserts rate rows.
func (s *LedgerStore) SaveRates(ctx context.Context, rates []CurrencyRate) error {
	return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		for _, r := range rates {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO currency_rates (currency, rate_date, rate)
				VALUES (?, ?, ?)
				ON CONFLICT(currency, rate_date) DO UPDATE SET rate = excluded.rate`,
				r.Currency, r.Date.Format(dateLayout), r.Rate.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to save rate %s: %w", r.Currency, err)
			}
		}
		return nil
	})
}

// SaveStatementLines inserts imported statement lines. Lines already
// imported are skipped; the number of new lines is returned.
func (s *LedgerStore) SaveStatementLines(ctx context.Context, lines []domain.Transaction, sourceFile string) (int, error) {
	inserted := 0
	err := s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		for _, l := range lines {
			foreign := ""
			if l.ForeignCurrency != nil {
				foreign = l.ForeignCurrency.Code
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO statement_lines
					(id, journal_id, payment_ref, line_date, amount, amount_currency, foreign_currency, partner_id, source_file)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING`,
				l.ID, l.Journal.ID, l.PaymentRef, l.Date.Format(dateLayout),
				l.Amount.String(), l.AmountCurrency.String(), foreign, partnerRef(l.Partner), sourceFile,
			)
			if err != nil {
				return fmt.Errorf("failed to save statement line %s: %w", l.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

const statementLineColumns = `id, journal_id, payment_ref, line_date, amount, amount_currency,
	foreign_currency, partner_id, is_reconciled, entry_ref`

// StatementLine loads one statement line with its posted entry, if any.
func (s *LedgerStore) StatementLine(ctx context.Context, id string) (domain.Transaction, error) {
	row := s.conn.db.QueryRowContext(ctx, `SELECT `+statementLineColumns+` FROM statement_lines WHERE id = ?`, id)
	tx, entryRef, err := s.scanStatementLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, notFound("statement line", id)
	}
	if err != nil {
		return domain.Transaction{}, err
	}
	if entryRef != "" {
		posted, err := s.postedEntry(ctx, entryRef)
		if err != nil {
			return domain.Transaction{}, err
		}
		tx.PostedEntry = &posted
	}
	return tx, nil
}

// StatementLines lists statement lines by date, optionally only the open ones.
func (s *LedgerStore) StatementLines(ctx context.Context, openOnly bool) ([]domain.Transaction, error) {
	query := `SELECT ` + statementLineColumns + ` FROM statement_lines`
	if openOnly {
		query += ` WHERE is_reconciled = 0`
	}
	query += ` ORDER BY line_date, id`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query statement lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.Transaction
	for rows.Next() {
		tx, _, err := s.scanStatementLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, tx)
	}
	return lines, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *LedgerStore) scanStatementLine(row rowScanner) (domain.Transaction, string, error) {
	var (
		tx                                 domain.Transaction
		journalID, date, amount, amountCur string
		foreign, partnerID, entryRef       string
		reconciled                         int
	)
	if err := row.Scan(&tx.ID, &journalID, &tx.PaymentRef, &date, &amount, &amountCur,
		&foreign, &partnerID, &reconciled, &entryRef); err != nil {
		return tx, "", err
	}

	var err error
	if tx.Journal, err = s.catalog.Journal(journalID); err != nil {
		return tx, "", err
	}
	if tx.Date, err = time.Parse(dateLayout, date); err != nil {
		return tx, "", fmt.Errorf("could not parse date '%s': %w", date, err)
	}
	if tx.Amount, err = parseDecimal(amount); err != nil {
		return tx, "", err
	}
	if tx.AmountCurrency, err = parseDecimal(amountCur); err != nil {
		return tx, "", err
	}
	if foreign != "" {
		cur, err := s.catalog.Currency(foreign)
		if err != nil {
			return tx, "", err
		}
		tx.ForeignCurrency = &cur
	}
	if partnerID != "" {
		if tx.Partner, err = s.catalog.Partner(partnerID); err != nil {
			return tx, "", err
		}
	}
	tx.IsReconciled = reconciled != 0
	return tx, entryRef, nil
}

// SaveSourceEntries upserts source entries.
func (s *LedgerStore) SaveSourceEntries(ctx context.Context, entries []domain.SourceEntry) error {
	return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			terms := ""
			if e.EarlyPayment != nil {
				raw, err := json.Marshal(e.EarlyPayment)
				if err != nil {
					return fmt.Errorf("failed to encode early payment terms of %s: %w", e.ID, err)
				}
				terms = string(raw)
			}
			dueDate := ""
			if !e.DueDate.IsZero() {
				dueDate = e.DueDate.Format(dateLayout)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO source_entries
					(id, name, partner_id, account_id, currency, amount_currency, balance,
					 amount_residual_currency, amount_residual, entry_date, due_date, early_payment, reconciled)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					partner_id = excluded.partner_id,
					account_id = excluded.account_id,
					currency = excluded.currency,
					amount_currency = excluded.amount_currency,
					balance = excluded.balance,
					amount_residual_currency = excluded.amount_residual_currency,
					amount_residual = excluded.amount_residual,
					entry_date = excluded.entry_date,
					due_date = excluded.due_date,
					early_payment = excluded.early_payment,
					reconciled = excluded.reconciled`,
				e.ID, e.Name, partnerRef(e.Partner), e.Account.ID, e.Currency.Code,
				e.AmountCurrency.String(), e.Balance.String(),
				e.AmountResidualCurrency.String(), e.AmountResidual.String(),
				e.Date.Format(dateLayout), dueDate, terms, boolToInt(e.Reconciled),
			)
			if err != nil {
				return fmt.Errorf("failed to save source entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

const sourceEntryColumns = `id, name, partner_id, account_id, currency, amount_currency, balance,
	amount_residual_currency, amount_residual, entry_date, due_date, early_payment, reconciled`

// FetchSourceEntry loads one source entry with its current residual.
func (s *LedgerStore) FetchSourceEntry(ctx context.Context, id string) (domain.SourceEntry, error) {
	row := s.conn.db.QueryRowContext(ctx, `SELECT `+sourceEntryColumns+` FROM source_entries WHERE id = ?`, id)
	entry, err := s.scanSourceEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SourceEntry{}, notFound("source entry", id)
	}
	return entry, err
}

// OpenSourceEntries lists the entries not yet fully reconciled, oldest first.
func (s *LedgerStore) OpenSourceEntries(ctx context.Context) ([]domain.SourceEntry, error) {
	rows, err := s.conn.db.QueryContext(ctx, `SELECT `+sourceEntryColumns+`
		FROM source_entries WHERE reconciled = 0 ORDER BY entry_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.SourceEntry
	for rows.Next() {
		entry, err := s.scanSourceEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *LedgerStore) scanSourceEntry(row rowScanner) (domain.SourceEntry, error) {
	var (
		e                                         domain.SourceEntry
		partnerID, accountID, currency            string
		amountCur, balance, residualCur, residual string
		date, dueDate, terms                      string
		reconciled                                int
	)
	if err := row.Scan(&e.ID, &e.Name, &partnerID, &accountID, &currency, &amountCur, &balance,
		&residualCur, &residual, &date, &dueDate, &terms, &reconciled); err != nil {
		return e, err
	}

	var err error
	if partnerID != "" {
		if e.Partner, err = s.catalog.Partner(partnerID); err != nil {
			return e, err
		}
	}
	if e.Account, err = s.catalog.Account(accountID); err != nil {
		return e, err
	}
	if e.Currency, err = s.catalog.Currency(currency); err != nil {
		return e, err
	}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{amountCur, &e.AmountCurrency},
		{balance, &e.Balance},
		{residualCur, &e.AmountResidualCurrency},
		{residual, &e.AmountResidual},
	} {
		if *f.dst, err = parseDecimal(f.raw); err != nil {
			return e, err
		}
	}
	if e.Date, err = time.Parse(dateLayout, date); err != nil {
		return e, fmt.Errorf("could not parse date '%s': %w", date, err)
	}
	if dueDate != "" {
		if e.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
			return e, fmt.Errorf("could not parse due date '%s': %w", dueDate, err)
		}
	}
	if terms != "" {
		var t domain.EarlyPaymentTerms
		if err := json.Unmarshal([]byte(terms), &t); err != nil {
			return e, fmt.Errorf("failed to decode early payment terms of %s: %w", e.ID, err)
		}
		e.EarlyPayment = &t
	}
	e.Reconciled = reconciled != 0
	return e, nil
}

// PostEntry writes the journal entry, reduces the residual of every linked
// source entry and marks the statement line reconciled, all in one SQL
// transaction.
func (s *LedgerStore) PostEntry(ctx context.Context, entry domain.JournalEntry, links []domain.ReconcileLink) (domain.PostedEntry, error) {
	ref := "BNK/" + uuid.NewString()

	err := s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		var reconciled int
		err := tx.QueryRowContext(ctx, `SELECT is_reconciled FROM statement_lines WHERE id = ?`, entry.TransactionID).Scan(&reconciled)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("statement line", entry.TransactionID)
		}
		if err != nil {
			return fmt.Errorf("failed to read statement line: %w", err)
		}
		if reconciled != 0 {
			return domain.NewDomainError(domain.ErrorReadOnly, "statement_line", fmt.Sprintf("statement line %s is already reconciled", entry.TransactionID))
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO journal_entries (ref, statement_line_id, journal_id, entry_date, label, partner_id, to_check)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ref, entry.TransactionID, entry.JournalID, entry.Date.Format(dateLayout),
			entry.Ref, partnerRef(entry.Partner), boolToInt(entry.ToCheck),
		); err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}

		for i, item := range entry.Items {
			if err := insertItem(ctx, tx, ref, i, item); err != nil {
				return err
			}
		}

		for _, link := range links {
			if err := s.reconcile(ctx, tx, ref, link); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE statement_lines SET is_reconciled = 1, entry_ref = ?, partner_id = ? WHERE id = ?`,
			ref, partnerRef(entry.Partner), entry.TransactionID,
		); err != nil {
			return fmt.Errorf("failed to mark statement line reconciled: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.PostedEntry{}, err
	}

	return domain.PostedEntry{Ref: ref, Items: entry.Items}, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, ref string, position int, item domain.JournalItem) error {
	taxIDs := make([]string, 0, len(item.Taxes))
	for _, t := range item.Taxes {
		taxIDs = append(taxIDs, t.ID)
	}
	encoded := make([]string, 4)
	for i, v := range []any{taxIDs, item.TaxTags, item.TaxRepartition, item.AnalyticDistribution} {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode journal item %d: %w", position, err)
		}
		encoded[i] = string(raw)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO journal_items
			(entry_ref, position, name, role, account_id, partner_id, currency, amount_currency, balance,
			 tax_ids, tax_tags, tax_repartition, analytic, source_entry_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, position, item.Name, string(item.Role), item.Account.ID, partnerRef(item.Partner), item.Currency.Code,
		item.AmountInCurrency.String(), item.Balance.String(),
		encoded[0], encoded[1], encoded[2], encoded[3], item.SourceEntryRef,
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal item %d: %w", position, err)
	}
	return nil
}

// reconcile applies one link to its source entry. A link that would flip the
// sign of the residual is rejected.
func (s *LedgerStore) reconcile(ctx context.Context, tx *sql.Tx, ref string, link domain.ReconcileLink) error {
	var code, rawResidualCur, rawResidual string
	var reconciled int
	err := tx.QueryRowContext(ctx, `
		SELECT currency, amount_residual_currency, amount_residual, reconciled
		FROM source_entries WHERE id = ?`, link.SourceEntryRef,
	).Scan(&code, &rawResidualCur, &rawResidual, &reconciled)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("source entry", link.SourceEntryRef)
	}
	if err != nil {
		return fmt.Errorf("failed to read source entry %s: %w", link.SourceEntryRef, err)
	}
	if reconciled != 0 {
		return domain.NewDomainError(domain.ErrorInvalidInput, "source_entry_ref",
			fmt.Sprintf("source entry %s is already reconciled", link.SourceEntryRef))
	}

	currency, err := s.catalog.Currency(code)
	if err != nil {
		return err
	}
	company := s.catalog.Company().Currency
	residualCur, err := parseDecimal(rawResidualCur)
	if err != nil {
		return err
	}
	residual, err := parseDecimal(rawResidual)
	if err != nil {
		return err
	}

	deltaCur := link.AmountInCurrency
	if !link.Currency.Is(currency) {
		switch {
		case currency.Is(company):
			deltaCur = link.Balance
		case !residual.IsZero():
			deltaCur = currency.Round(link.Balance.Mul(residualCur).Div(residual))
		}
	}

	newResidualCur := currency.Round(residualCur.Add(deltaCur))
	newResidual := company.Round(residual.Add(link.Balance))
	if newResidualCur.Sign() != 0 && newResidualCur.Sign() != residualCur.Sign() {
		return domain.NewDomainError(domain.ErrorInvalidInput, "source_entry_ref",
			fmt.Sprintf("payment of %s over-reconciles source entry %s", deltaCur.Neg(), link.SourceEntryRef))
	}

	fully := currency.IsZero(newResidualCur)
	if fully {
		newResidualCur, newResidual = decimal.Zero, decimal.Zero
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE source_entries
		SET amount_residual_currency = ?, amount_residual = ?, reconciled = ?
		WHERE id = ?`,
		newResidualCur.String(), newResidual.String(), boolToInt(fully), link.SourceEntryRef,
	); err != nil {
		return fmt.Errorf("failed to update source entry %s: %w", link.SourceEntryRef, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO partial_reconciles (entry_ref, item_position, source_entry_id, amount_currency, balance)
		VALUES (?, ?, ?, ?, ?)`,
		ref, link.ItemPosition, link.SourceEntryRef, deltaCur.Neg().String(), link.Balance.Neg().String(),
	); err != nil {
		return fmt.Errorf("failed to record reconciliation of %s: %w", link.SourceEntryRef, err)
	}
	return nil
}

func (s *LedgerStore) postedEntry(ctx context.Context, ref string) (domain.PostedEntry, error) {
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT name, role, account_id, partner_id, currency, amount_currency, balance,
			tax_ids, tax_tags, tax_repartition, analytic, source_entry_id
		FROM journal_items WHERE entry_ref = ? ORDER BY position`, ref)
	if err != nil {
		return domain.PostedEntry{}, fmt.Errorf("failed to query journal items: %w", err)
	}
	defer rows.Close()

	posted := domain.PostedEntry{Ref: ref}
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return domain.PostedEntry{}, err
		}
		posted.Items = append(posted.Items, item)
	}
	return posted, rows.Err()
}

func (s *LedgerStore) scanItem(row rowScanner) (domain.JournalItem, error) {
	var (
		item                                 domain.JournalItem
		role, accountID, partnerID, currency string
		amountCur, balance                   string
		taxIDs, tags, repartition, analytic  string
	)
	if err := row.Scan(&item.Name, &role, &accountID, &partnerID, &currency, &amountCur, &balance,
		&taxIDs, &tags, &repartition, &analytic, &item.SourceEntryRef); err != nil {
		return item, err
	}

	var err error
	item.Role = domain.LineRole(role)
	if item.Account, err = s.catalog.Account(accountID); err != nil {
		return item, err
	}
	if partnerID != "" {
		if item.Partner, err = s.catalog.Partner(partnerID); err != nil {
			return item, err
		}
	}
	if item.Currency, err = s.catalog.Currency(currency); err != nil {
		return item, err
	}
	if item.AmountInCurrency, err = parseDecimal(amountCur); err != nil {
		return item, err
	}
	if item.Balance, err = parseDecimal(balance); err != nil {
		return item, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(taxIDs), &ids); err != nil {
		return item, fmt.Errorf("failed to decode tax ids: %w", err)
	}
	if item.Taxes, err = s.catalog.taxList(ids); err != nil {
		return item, err
	}
	if err := json.Unmarshal([]byte(tags), &item.TaxTags); err != nil {
		return item, fmt.Errorf("failed to decode tax tags: %w", err)
	}
	if err := json.Unmarshal([]byte(repartition), &item.TaxRepartition); err != nil {
		return item, fmt.Errorf("failed to decode tax repartition: %w", err)
	}
	if err := json.Unmarshal([]byte(analytic), &item.AnalyticDistribution); err != nil {
		return item, fmt.Errorf("failed to decode analytic distribution: %w", err)
	}
	return item, nil
}

func partnerRef(p *domain.Partner) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
