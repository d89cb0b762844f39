package models

import "time"

// Trend represents the short-term direction of a test's success rate.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendUnknown   Trend = "unknown"
)

// TimeWindow represents the half-open-ish time range a snapshot or query
// covers. Both bounds are inclusive.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// RunObservation represents one test's outcome within one execution batch.
// Immutable once recorded.
type RunObservation struct {
	Timestamp  time.Time `json:"timestamp"`
	Status     RunStatus `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	BatchID    string    `json:"batch_id"`
}

// TestSeries represents the bounded run history and derived counters for a
// single test. History is ordered oldest to newest; the oldest observation
// is evicted when the capacity is reached.
type TestSeries struct {
	TestID         string           `json:"test_id"`
	History        []RunObservation `json:"history"`
	TotalRuns      int              `json:"total_runs"`
	SuccessfulRuns int              `json:"successful_runs"`
	FailedRuns     int              `json:"failed_runs"`
	SkippedRuns    int              `json:"skipped_runs"`
	SuccessRate    float64          `json:"success_rate"`
	LastRun        *RunObservation  `json:"last_run,omitempty"`
	Trend          Trend            `json:"trend"`
}

// Clone returns a deep copy of the series.
func (s *TestSeries) Clone() *TestSeries {
	c := *s
	c.History = make([]RunObservation, len(s.History))
	copy(c.History, s.History)
	if s.LastRun != nil {
		last := *s.LastRun
		c.LastRun = &last
	}
	return &c
}

// ProjectSuccessSnapshot represents the per-test series for a whole project
// plus the project-wide success rate.
type ProjectSuccessSnapshot struct {
	Series             map[string]*TestSeries `json:"series"`
	OverallSuccessRate float64                `json:"overall_success_rate"`
	TotalTests         int                    `json:"total_tests"`
	LastUpdated        time.Time              `json:"last_updated"`
	Window             TimeWindow             `json:"window"`
}

// NewProjectSuccessSnapshot returns an empty snapshot.
func NewProjectSuccessSnapshot() *ProjectSuccessSnapshot {
	return &ProjectSuccessSnapshot{Series: make(map[string]*TestSeries)}
}

// Clone returns a deep copy of the snapshot.
func (p *ProjectSuccessSnapshot) Clone() *ProjectSuccessSnapshot {
	c := *p
	c.Series = make(map[string]*TestSeries, len(p.Series))
	for id, s := range p.Series {
		c.Series[id] = s.Clone()
	}
	return &c
}
