package flakiness

import "github.com/kamilpajak/flakewatch/pkg/models"

// highVariancePct is the duration variance above which execution time itself
// is reported as an instability pattern.
const highVariancePct = 50.0

// highChurnFactor is the status-change factor above which outcome churn gets
// its own recommendation even without a clean alternating pattern.
const highChurnFactor = 70.0

// detectPatterns names the instability patterns visible in a measure.
func detectPatterns(m *models.FlakinessMeasure) []string {
	var patterns []string
	if m.Alternating {
		patterns = append(patterns, "alternating")
	}
	if m.Timeouts > 0 {
		patterns = append(patterns, "timeout")
	}
	if m.DurationVariancePC > highVariancePct {
		patterns = append(patterns, "high duration variance")
	}
	return patterns
}

// recommend produces fixed textual suggestions for the patterns that fired.
// The rule order is deterministic so repeated analyses of the same history
// yield identical reports.
func recommend(m *models.FlakinessMeasure, statusChangeFactor float64) []string {
	var recs []string
	if m.Alternating {
		recs = append(recs,
			"Test alternates between passing and failing; check for shared state or ordering dependencies between tests",
			"Run the test in isolation to rule out interference")
	}
	if m.Timeouts > 0 {
		recs = append(recs,
			"Test times out intermittently; replace fixed waits with explicit conditions or raise the timeout")
	}
	if m.DurationVariancePC > highVariancePct {
		recs = append(recs,
			"Execution time varies widely between runs; profile the test for nondeterministic waits or external calls")
	}
	if statusChangeFactor > highChurnFactor {
		recs = append(recs,
			"Outcomes change frequently between runs; review recent changes to the test and its fixtures")
	}
	if len(recs) == 0 {
		recs = append(recs,
			"No dominant instability pattern detected; review the run history manually")
	}
	return recs
}
