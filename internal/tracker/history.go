package tracker

import (
	"github.com/kamilpajak/flakewatch/pkg/models"
)

// DefaultHistoryCapacity bounds how many observations a series keeps.
const DefaultHistoryCapacity = 10

// appendObservation records one run in a series: the observation is appended
// (evicting the oldest at capacity), the lifetime counter for its status is
// incremented, and the success rate is recomputed from the counters. History
// is bounded; the counters are not.
func appendObservation(series *models.TestSeries, obs models.RunObservation, capacity int) {
	if capacity > 0 && len(series.History) >= capacity {
		series.History = append(series.History[:0], series.History[1:]...)
	}
	series.History = append(series.History, obs)

	series.TotalRuns++
	switch obs.Status {
	case models.StatusPassed:
		series.SuccessfulRuns++
	case models.StatusSkipped:
		series.SkippedRuns++
	default:
		// failed and timed_out both count as failures
		series.FailedRuns++
	}

	series.SuccessRate = successRate(series.SuccessfulRuns, series.TotalRuns)
	last := obs
	series.LastRun = &last
}

// filterSeries returns a copy of the series restricted to observations
// within the window, with counters and success rate rederived from the
// filtered subset only.
func filterSeries(series *models.TestSeries, window models.TimeWindow) *models.TestSeries {
	filtered := &models.TestSeries{
		TestID: series.TestID,
		Trend:  series.Trend,
	}
	for _, obs := range series.History {
		if !window.Contains(obs.Timestamp) {
			continue
		}
		filtered.History = append(filtered.History, obs)
		filtered.TotalRuns++
		switch obs.Status {
		case models.StatusPassed:
			filtered.SuccessfulRuns++
		case models.StatusSkipped:
			filtered.SkippedRuns++
		default:
			filtered.FailedRuns++
		}
	}
	filtered.SuccessRate = successRate(filtered.SuccessfulRuns, filtered.TotalRuns)
	if n := len(filtered.History); n > 0 {
		last := filtered.History[n-1]
		filtered.LastRun = &last
	}
	return filtered
}

// observationRate computes the success rate of a slice of observations.
func observationRate(obs []models.RunObservation) float64 {
	passed := 0
	for _, o := range obs {
		if o.Status == models.StatusPassed {
			passed++
		}
	}
	return successRate(passed, len(obs))
}

func successRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

// overallRate computes the unweighted mean of all series' success rates.
// Every test contributes equally regardless of how many runs it has.
func overallRate(series map[string]*models.TestSeries) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, s := range series {
		sum += s.SuccessRate
	}
	return sum / float64(len(series))
}
