package cmd

import (
	"context"
	"fmt"

	"bank-reconciliation/internal/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileScript string
	reconcileAuto   bool
	reconcileCommit bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [statement-line-id]",
	Short: "Reconcile one statement line",
	Long: `Open a statement line, optionally run the matching rules, replay the
actions of a YAML script and print the resulting working set as JSON.
With --commit (or "commit: true" in the script) the balanced entry is
posted to the ledger.

Example:
  reconciler reconcile BANK_A_1 --auto
  reconciler reconcile --script actions.yaml --commit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileScript, "script", "", "YAML action script to replay")
	reconcileCmd.Flags().BoolVar(&reconcileAuto, "auto", false, "run the matching rules before the script")
	reconcileCmd.Flags().BoolVar(&reconcileCommit, "commit", false, "post the entry when the working set balances")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	script := &actionScript{}
	if reconcileScript != "" {
		if script, err = loadScript(reconcileScript); err != nil {
			return err
		}
	}
	statementLine := script.StatementLine
	if len(args) == 1 {
		statementLine = args[0]
	}
	if statementLine == "" {
		return domain.NewDomainError(domain.ErrorInvalidInput, "statement_line", "no statement line given")
	}

	commands, err := script.commands(a.catalog)
	if err != nil {
		return err
	}

	ctx := context.Background()
	session, err := a.open(ctx, statementLine)
	if err != nil {
		return err
	}

	if reconcileAuto {
		outcome, err := session.TriggerMatchingRules(ctx)
		if err != nil {
			return err
		}
		if outcome.Posted != nil {
			a.logger.Info("statement line auto-reconciled", zap.String("ref", outcome.Posted.Ref))
		}
	}

	for i, c := range commands {
		if err := session.Dispatch(ctx, c); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, c.Kind(), err)
		}
	}

	if (reconcileCommit || script.Commit) && session.State() == domain.StateValid {
		posted, err := session.Commit(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("statement line reconciled", zap.String("ref", posted.Ref))
	} else if reconcileCommit || script.Commit {
		a.logger.Warn("working set does not balance, nothing posted", zap.String("state", string(session.State())))
	}

	return printJSON(cmd.OutOrStdout(), session.Snapshot())
}
