package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// schema holds the ledger tables. Amounts are stored as decimal text so
// nothing is lost to floating point.
const schema = `
CREATE TABLE IF NOT EXISTS currency_rates (
    currency TEXT NOT NULL,
    rate_date TEXT NOT NULL,           -- YYYY-MM-DD
    rate TEXT NOT NULL,                -- units per unit of company currency
    PRIMARY KEY (currency, rate_date)
);

CREATE TABLE IF NOT EXISTS statement_lines (
    id TEXT PRIMARY KEY,
    journal_id TEXT NOT NULL,
    payment_ref TEXT NOT NULL DEFAULT '',
    line_date TEXT NOT NULL,
    amount TEXT NOT NULL,              -- journal currency
    amount_currency TEXT NOT NULL DEFAULT '0',
    foreign_currency TEXT NOT NULL DEFAULT '',
    partner_id TEXT NOT NULL DEFAULT '',
    is_reconciled INTEGER NOT NULL DEFAULT 0,
    entry_ref TEXT NOT NULL DEFAULT '',
    source_file TEXT NOT NULL DEFAULT '',
    imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_statement_lines_open
    ON statement_lines(is_reconciled, line_date);

CREATE TABLE IF NOT EXISTS source_entries (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    partner_id TEXT NOT NULL DEFAULT '',
    account_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    amount_currency TEXT NOT NULL,
    balance TEXT NOT NULL,
    amount_residual_currency TEXT NOT NULL,
    amount_residual TEXT NOT NULL,
    entry_date TEXT NOT NULL,
    due_date TEXT NOT NULL DEFAULT '',
    early_payment TEXT NOT NULL DEFAULT '', -- JSON terms
    reconciled INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_source_entries_partner
    ON source_entries(partner_id, reconciled);

CREATE TABLE IF NOT EXISTS journal_entries (
    ref TEXT PRIMARY KEY,
    statement_line_id TEXT NOT NULL REFERENCES statement_lines(id),
    journal_id TEXT NOT NULL,
    entry_date TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    partner_id TEXT NOT NULL DEFAULT '',
    to_check INTEGER NOT NULL DEFAULT 0,
    posted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS journal_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_ref TEXT NOT NULL REFERENCES journal_entries(ref),
    position INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL,
    account_id TEXT NOT NULL,
    partner_id TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL,
    amount_currency TEXT NOT NULL,
    balance TEXT NOT NULL,
    tax_ids TEXT NOT NULL DEFAULT '',          -- JSON array
    tax_tags TEXT NOT NULL DEFAULT '',         -- JSON array
    tax_repartition TEXT NOT NULL DEFAULT '',  -- JSON object
    analytic TEXT NOT NULL DEFAULT '',         -- JSON object
    source_entry_id TEXT NOT NULL DEFAULT '',
    UNIQUE(entry_ref, position)
);

CREATE TABLE IF NOT EXISTS partial_reconciles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_ref TEXT NOT NULL REFERENCES journal_entries(ref),
    item_position INTEGER NOT NULL,
    source_entry_id TEXT NOT NULL REFERENCES source_entries(id),
    amount_currency TEXT NOT NULL,
    balance TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Connection manages a SQLite database connection.
type Connection struct {
	db     *sql.DB
	dbPath string
}

// OpenDatabase opens the SQLite ledger and creates its tables.
// Foreign keys are enforced and the journal runs in WAL mode.
func OpenDatabase(dbPath string) (*Connection, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn := &Connection{db: db, dbPath: dbPath}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return conn, nil
}

// Close closes the database connection.
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (c *Connection) Path() string {
	return c.dbPath
}

// Transaction executes fn within a transaction. If fn returns an error or
// panics, the transaction is rolled back; otherwise it is committed.
func (c *Connection) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
