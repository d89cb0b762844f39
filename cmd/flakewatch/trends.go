package flakewatch

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

var trendsDays int

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show per-test success-rate trends",
	Long: `Trends classifies each test's recent history as improving, stable,
or declining by comparing the older and newer halves of its runs within the
trailing window.`,
	RunE: runTrends,
}

func init() {
	trendsCmd.Flags().IntVar(&trendsDays, "days", 7, "Trailing window in days")
}

func runTrends(cmd *cobra.Command, args []string) error {
	c, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer c.close()

	snapshot := c.tracker.ClassifyTrends(trendsDays)
	if len(snapshot.Series) == 0 {
		fmt.Println("No run history recorded yet.")
		return nil
	}

	ids := make([]string, 0, len(snapshot.Series))
	for id := range snapshot.Series {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("Trends over the last %d days (%d tests, overall %.1f%%)\n\n",
		trendsDays, snapshot.TotalTests, snapshot.OverallSuccessRate)
	for _, id := range ids {
		series := snapshot.Series[id]
		trendColor(series.Trend).Printf("%-10s", series.Trend)
		fmt.Printf(" %6.1f%%  %s (%d runs)\n", series.SuccessRate, id, series.TotalRuns)
	}
	return nil
}

func trendColor(trend models.Trend) *color.Color {
	switch trend {
	case models.TrendImproving:
		return color.New(color.FgGreen)
	case models.TrendDeclining:
		return color.New(color.FgRed)
	case models.TrendStable:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgHiBlack)
	}
}
