package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var showAll bool

var showCmd = &cobra.Command{
	Use:   "show [statement-line-id]",
	Short: "List statement lines or print the working set of one",
	Long: `Without argument, list the statement lines still to reconcile (or all
of them with --all). With a statement line id, print the proposed
working set as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showAll, "all", false, "include reconciled statement lines")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		lines, err := a.store.StatementLines(ctx, !showAll)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-24s %-10s %14s  %-8s %s\n", "ID", "DATE", "AMOUNT", "STATUS", "REFERENCE")
		for _, tx := range lines {
			status := "open"
			if tx.IsReconciled {
				status = "done"
			}
			fmt.Fprintf(out, "%-24s %-10s %14s  %-8s %s\n",
				tx.ID, tx.Date.Format("2006-01-02"), tx.Amount.StringFixed(tx.Journal.EffectiveCurrency().Decimals), status, tx.PaymentRef)
		}
		return nil
	}

	session, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(out, session.Snapshot())
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
