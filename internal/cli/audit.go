package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/claimgate/internal/audit"
	"github.com/ppiankov/claimgate/internal/model"
	"github.com/spf13/cobra"
)

var auditRunID string

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <db>",
	Short: "Summarize rejections recorded in an audit log",
	Long: `Audit prints rejection counts by code from a SQLite audit log written by
verify or batch with --audit.

Example:
  claimgate audit rejections.db
  claimgate audit rejections.db --run 3f2b9c1e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditRunID, "run", "", "restrict to one run id")
}

func runAudit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	store, err := audit.NewStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	counts, err := store.CountByCode(context.Background(), auditRunID)
	if err != nil {
		return err
	}

	summary := model.RunSummary{ByCode: counts}
	total := 0
	for _, n := range counts {
		total += n
	}

	scope := "all runs"
	if auditRunID != "" {
		scope = "run " + auditRunID
	}
	fmt.Printf("Rejections in %s (%s): %d\n", path, scope, total)
	for _, code := range summary.Codes() {
		fmt.Printf("  %-22s %d\n", code, counts[code])
	}
	return nil
}
