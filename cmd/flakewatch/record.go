package flakewatch

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/flakewatch/internal/parser"
)

var recordCmd = &cobra.Command{
	Use:   "record <report.json>",
	Short: "Record a test run from a Playwright JSON report",
	Long: `Record parses a Playwright JSON report, ingests its outcomes as one
batch, and re-runs the flakiness analysis.

Examples:
  flakewatch record ./playwright-report/results.json
  flakewatch record ./results.json --results-dir .flakewatch`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := cmd.Context()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}

	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	fmt.Fprintf(os.Stderr, "Parsing report: %s\n", path)
	p := &parser.PlaywrightParser{}
	batch, err := p.Parse(path)
	if err != nil {
		return fmt.Errorf("failed to parse report: %w", err)
	}

	report, err := c.analyzer.UpdateWithNewResult(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	snapshot := c.tracker.Query(nil)
	fmt.Fprintf(os.Stderr, "Recorded %d outcomes from batch %s\n", len(batch.Outcomes), batch.BatchID)
	fmt.Printf("Overall success rate: %.1f%% across %d tests\n", snapshot.OverallSuccessRate, snapshot.TotalTests)
	fmt.Printf("Flaky tests: %d of %d analyzed (threshold %.0f)\n",
		report.FlakyTestsCount, report.TotalTestsAnalyzed, report.Threshold)
	return nil
}
