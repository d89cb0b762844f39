package flakewatch

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

var (
	reportDays   int
	reportLimit  int
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the flakiness report",
	Long: `Report re-analyzes the recorded run history and prints the flakiest
tests with their detected patterns and recommendations.

Examples:
  flakewatch report
  flakewatch report --days 7 --limit 5
  flakewatch report --format json`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", 30, "Trailing window in days")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 10, "Number of tests to show")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "Output format (text, json)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	spin := startSpinner("Analyzing run history...")
	report, err := c.analyzer.Analyze(ctx, reportDays, c.cfg.MinRuns)
	stopSpinner(spin)
	if err != nil {
		// The report was still computed; persistence is what failed.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if reportFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report, reportLimit)
	return nil
}

func startSpinner(message string) *spinner.Spinner {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	return s
}

func stopSpinner(s *spinner.Spinner) {
	if s != nil {
		s.Stop()
	}
}

func printReport(report *models.ProjectFlakinessReport, limit int) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	bold.Printf("Flakiness Report\n")
	dim.Printf("window: %s – %s\n\n",
		report.TimePeriod.Start.Format("2006-01-02"),
		report.TimePeriod.End.Format("2006-01-02"))

	fmt.Printf("Overall score: %.1f | Flaky: %d of %d analyzed (threshold %.0f)\n\n",
		report.OverallFlakinessScore, report.FlakyTestsCount,
		report.TotalTestsAnalyzed, report.Threshold)

	if len(report.Measures) == 0 {
		fmt.Println("Not enough run history to score any test yet.")
		return
	}

	measures := append([]models.FlakinessMeasure(nil), report.Measures...)
	sortByScore(measures)
	if len(measures) > limit {
		measures = measures[:limit]
	}

	for _, m := range measures {
		scoreColor(m.Score).Printf("%6.1f ", m.Score)
		fmt.Printf("%s %s\n", scoreBar(m.Score), m.TestID)
		if len(m.DetectedPatterns) > 0 {
			dim.Printf("        patterns: %s | confidence %.0f%%\n",
				strings.Join(m.DetectedPatterns, ", "), m.Confidence)
		}
		for _, rec := range m.Recommendations {
			dim.Printf("        - %s\n", rec)
		}
	}
}

func sortByScore(measures []models.FlakinessMeasure) {
	// Stable so equal scores keep report order.
	sort.SliceStable(measures, func(i, j int) bool {
		return measures[i].Score > measures[j].Score
	})
}

func scoreColor(score float64) *color.Color {
	switch {
	case score < 30:
		return color.New(color.FgGreen)
	case score < 70:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func scoreBar(score float64) string {
	filled := int(score / 10)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "]"
}
