package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load catalog rates and open entries into the ledger",
	Long: `Copy the currency rates and the open source entries declared in the
catalog into the ledger database. Existing rows are replaced.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	rates := a.catalog.Rates()
	if err := a.store.SaveRates(ctx, rates); err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}
	entries := a.catalog.SourceEntries()
	if err := a.store.SaveSourceEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to save source entries: %w", err)
	}

	a.logger.Info("seeded ledger", zap.Int("rates", len(rates)), zap.Int("source_entries", len(entries)))
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d rates and %d source entries\n", len(rates), len(entries))
	return nil
}
