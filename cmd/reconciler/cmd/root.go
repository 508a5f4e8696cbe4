// Package cmd provides the CLI commands of the reconciler.
package cmd

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/config"
	"bank-reconciliation/internal/gateway"
	"bank-reconciliation/internal/logging"
	"bank-reconciliation/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Reconcile bank statement lines against open ledger entries",
	Long: `reconciler matches imported bank statement lines with open invoices
and bills, proposes write-off, tax and discount lines, and posts the
balanced journal entry.

Example:
  reconciler seed
  reconciler import --journal bank statement_bank_A.csv
  reconciler show
  reconciler reconcile BANK_A_1 --auto --commit`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// app wires configuration, storage and the engine for one command run.
type app struct {
	logger  *zap.Logger
	conn    *gateway.Connection
	catalog *gateway.Catalog
	store   *gateway.LedgerStore
	engine  *usecase.ReconciliationUseCase
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate("RECONCILER_DB_PATH", "RECONCILER_CATALOG"); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger, err := logging.New(logging.Environment(cfg.Environment), level)
	if err != nil {
		return nil, err
	}

	catalog, err := gateway.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening database", zap.String("path", cfg.DBPath))
	conn, err := gateway.OpenDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	store := gateway.NewLedgerStore(conn, catalog)
	engine := usecase.NewReconciliationUseCase(usecase.Dependencies{
		Rates:        store,
		Entries:      store,
		Matcher:      gateway.NewRuleMatcher(catalog, store),
		Rules:        catalog,
		Taxes:        gateway.NewTaxEngine(),
		EarlyPayment: gateway.NewEarlyPaymentSplitter(),
		Models:       gateway.NewWriteOffEvaluator(),
		Ledger:       store,
	}, usecase.WithLogger(logger))

	return &app{
		logger:  logger,
		conn:    conn,
		catalog: catalog,
		store:   store,
		engine:  engine,
	}, nil
}

func (a *app) Close() {
	if err := a.conn.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) open(ctx context.Context, statementLineID string) (*usecase.Session, error) {
	tx, err := a.store.StatementLine(ctx, statementLineID)
	if err != nil {
		return nil, err
	}
	return a.engine.Open(ctx, tx)
}
