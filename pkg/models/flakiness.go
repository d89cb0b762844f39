package models

import "time"

// FlakinessMeasure represents the derived flakiness signals for a single
// test. It is recomputed from the run history on every analysis, never
// patched incrementally.
type FlakinessMeasure struct {
	TestID             string    `json:"test_id"`
	Score              float64   `json:"score"`
	Confidence         float64   `json:"confidence"`
	StatusChanges      int       `json:"status_changes"`
	Timeouts           int       `json:"timeouts"`
	DurationVariancePC float64   `json:"duration_variance_pct"`
	Alternating        bool      `json:"alternating"`
	TimeoutPattern     bool      `json:"timeout_pattern"`
	DetectedPatterns   []string  `json:"detected_patterns"`
	Recommendations    []string  `json:"recommendations"`
	LastChanged        time.Time `json:"last_changed"`
}

// ProjectFlakinessReport represents the flakiness analysis for a whole
// project. Regenerated wholesale on every analysis run.
type ProjectFlakinessReport struct {
	Measures              []FlakinessMeasure `json:"measures"`
	OverallFlakinessScore float64            `json:"overall_flakiness_score"`
	FlakyTestsCount       int                `json:"flaky_tests_count"`
	Threshold             float64            `json:"threshold"`
	TotalTestsAnalyzed    int                `json:"total_tests_analyzed"`
	LastUpdated           time.Time          `json:"last_updated"`
	TimePeriod            TimeWindow         `json:"time_period"`
}

// NewProjectFlakinessReport returns an empty report with the given threshold.
func NewProjectFlakinessReport(threshold float64) *ProjectFlakinessReport {
	return &ProjectFlakinessReport{
		Measures:  []FlakinessMeasure{},
		Threshold: threshold,
	}
}
