package cmd

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/gateway"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importJournal string

var importCmd = &cobra.Command{
	Use:   "import [statement.csv...]",
	Short: "Import bank statement CSV files",
	Long: `Import bank statement lines from CSV files into the ledger database.

Each file needs a header row and the columns:
  unique_identifier,amount,date,description[,foreign_currency,amount_currency,partner]

Lines already imported are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importJournal, "journal", "", "bank journal id the lines belong to (required)")
	_ = importCmd.MarkFlagRequired("journal")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	reader := gateway.NewCSVStatementReader(a.catalog)

	total := 0
	for _, path := range args {
		lines, err := reader.GetStatementLines(ctx, importJournal, []string{path})
		if err != nil {
			return err
		}
		inserted, err := a.store.SaveStatementLines(ctx, lines, path)
		if err != nil {
			return fmt.Errorf("failed to save statement lines from %s: %w", path, err)
		}
		a.logger.Info("imported statement file",
			zap.String("file", path),
			zap.Int("read", len(lines)),
			zap.Int("inserted", inserted))
		total += inserted
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d statement lines\n", total)
	return nil
}
