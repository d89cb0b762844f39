package tracker

import (
	"math"
	"time"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

// trendThreshold is the success-rate delta, in percentage points, below
// which a series is considered stable. Fixed by design, not configurable.
const trendThreshold = 5.0

// ClassifyTrends returns a copy of the snapshot with each series' trend
// classified from its observations in the trailing windowDays. The live
// snapshot is never mutated; trends are a pure function of the raw history.
func (t *SuccessRateTracker) ClassifyTrends(windowDays int) *models.ProjectSuccessSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := t.snapshot.Clone()
	cutoff := t.now().AddDate(0, 0, -windowDays)
	for _, series := range result.Series {
		series.Trend = classifyTrend(series.History, cutoff)
	}
	return result
}

// classifyTrend splits the observations after cutoff into an older and a
// newer half and compares the halves' success rates. Fewer than two
// observations cannot show a direction.
func classifyTrend(history []models.RunObservation, cutoff time.Time) models.Trend {
	var recent []models.RunObservation
	for _, obs := range history {
		if obs.Timestamp.After(cutoff) {
			recent = append(recent, obs)
		}
	}
	if len(recent) < 2 {
		return models.TrendUnknown
	}

	mid := len(recent) / 2
	olderRate := observationRate(recent[:mid])
	newerRate := observationRate(recent[mid:])
	delta := newerRate - olderRate

	switch {
	case math.Abs(delta) < trendThreshold:
		return models.TrendStable
	case delta >= trendThreshold:
		return models.TrendImproving
	default:
		return models.TrendDeclining
	}
}
