package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/claimgate/internal/ingest"
	"github.com/ppiankov/claimgate/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	verifyTask    string
	verifyJSON    string
	verifyTimeout time.Duration
	failOnReject  bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify one claim batch file",
	Long: `Verify runs every claim in a batch file through the structural gate and
the entailment check, then writes one verdict per claim in input order.

Batch files are JSON, YAML or JSON Lines and carry the research task plus
the claims. --task overrides the task stored in the file.

Example:
  claimgate verify claims.json
  claimgate verify claims.yaml --task "public key cryptography" --json verdicts.json
  claimgate verify claims.jsonl --backend judge --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyTask, "task", "", "research task (overrides the file)")
	verifyCmd.Flags().StringVar(&verifyJSON, "json", "-", "output JSON path (- for stdout)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 5*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&failOnReject, "fail-on-reject", false, "exit non-zero when any claim is rejected")
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	batch, err := ingest.Load(path)
	if err != nil {
		return err
	}
	if verifyTask != "" {
		batch.Task = verifyTask
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", path)
		fmt.Fprintf(os.Stderr, "Backend:   %s\n", cfg.Backend.Kind)
		fmt.Fprintf(os.Stderr, "Claims:    %d\n", len(batch.Claims))
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	report, err := p.VerifyBatch(ctx, batch, path)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if err := pipeline.RenderJSON(report, verifyJSON); err != nil {
		return fmt.Errorf("write JSON report: %w", err)
	}
	if verifyJSON != "-" {
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", verifyJSON)
	}

	pipeline.RenderSummary(os.Stderr, report)
	if verbose {
		fmt.Fprintln(os.Stderr)
		pipeline.RenderVerdicts(os.Stderr, report)
	}

	if failOnReject && report.Summary.Rejected > 0 {
		return fmt.Errorf("%d of %d claims rejected", report.Summary.Rejected, report.Summary.Total)
	}
	return nil
}
