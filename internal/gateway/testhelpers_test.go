package gateway

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestCatalog(t testing.TB) *Catalog {
	t.Helper()
	catalog, err := LoadCatalog(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	return catalog
}

// openTestStore opens a fresh SQLite ledger in a temp dir.
func openTestStore(t testing.TB) (*LedgerStore, *Catalog) {
	t.Helper()
	catalog := loadTestCatalog(t)
	conn, err := OpenDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewLedgerStore(conn, catalog), catalog
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}
