package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"bank-reconciliation/internal/domain"

	"github.com/google/uuid"
)

// Statement files carry a header row and these columns; the last three are
// optional.
//
//	unique_identifier,amount,date,description[,foreign_currency,amount_currency,partner]
const (
	colID = iota
	colAmount
	colDate
	colDescription
	colForeignCurrency
	colAmountCurrency
	colPartner
)

// CSVStatementReader reads bank statement lines from CSV files.
type CSVStatementReader struct {
	catalog *Catalog
}

// NewCSVStatementReader creates a new reader resolving currencies and
// partners through catalog.
func NewCSVStatementReader(catalog *Catalog) *CSVStatementReader {
	return &CSVStatementReader{catalog: catalog}
}

// GetStatementLines reads and parses statement CSV files into transactions
// of journalID. Rows without an identifier get a generated one.
func (r *CSVStatementReader) GetStatementLines(ctx context.Context, journalID string, paths []string) ([]domain.Transaction, error) {
	journal, err := r.catalog.Journal(journalID)
	if err != nil {
		return nil, err
	}

	var lines []domain.Transaction
	for _, path := range paths {
		read, err := r.readFile(journal, path)
		if err != nil {
			return nil, err
		}
		lines = append(lines, read...)
	}
	return lines, nil
}

func (r *CSVStatementReader) readFile(journal domain.Journal, path string) ([]domain.Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bank statement file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}

	var lines []domain.Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		if len(record) <= colDescription {
			return nil, fmt.Errorf("record in %s has %d columns, want at least 4", path, len(record))
		}

		tx, err := r.parseRecord(journal, record)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		lines = append(lines, tx)
	}
	return lines, nil
}

func (r *CSVStatementReader) parseRecord(journal domain.Journal, record []string) (domain.Transaction, error) {
	amount, err := parseDecimal(strings.TrimSpace(record[colAmount]))
	if err != nil {
		return domain.Transaction{}, err
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(record[colDate]))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("could not parse date '%s': %w", record[colDate], err)
	}

	tx := domain.Transaction{
		ID:         strings.TrimSpace(record[colID]),
		PaymentRef: record[colDescription],
		Date:       date,
		Amount:     journal.EffectiveCurrency().Round(amount),
		Journal:    journal,
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	if code := optionalColumn(record, colForeignCurrency); code != "" {
		cur, err := r.catalog.Currency(code)
		if err != nil {
			return domain.Transaction{}, err
		}
		amountCur, err := parseDecimal(optionalColumn(record, colAmountCurrency))
		if err != nil {
			return domain.Transaction{}, err
		}
		if !cur.Is(journal.EffectiveCurrency()) {
			tx.ForeignCurrency = &cur
			tx.AmountCurrency = cur.Round(amountCur)
		}
	}

	if partnerID := optionalColumn(record, colPartner); partnerID != "" {
		partner, err := r.catalog.Partner(partnerID)
		if err != nil {
			return domain.Transaction{}, err
		}
		tx.Partner = partner
	}
	return tx, nil
}

func optionalColumn(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}
