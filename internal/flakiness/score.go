package flakiness

import (
	"math"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

// Weights of the score components. Status changes dominate: a test that
// flips outcomes between runs is the strongest flakiness signal.
const (
	weightStatusChange = 0.4
	weightTimeout      = 0.2
	weightDuration     = 0.2
	weightAlternating  = 0.2
)

// alternatingMinRuns is the minimum history length before the alternating
// pattern can be claimed at all.
const alternatingMinRuns = 4

// alternatingRatio is the transition ratio above which a series is
// considered to be alternating rather than merely unstable.
const alternatingRatio = 0.6

// scoreSeries derives a FlakinessMeasure from a series' chronological
// history. Returns nil when the series has fewer than minRuns observations;
// too little data is not a zero score.
func scoreSeries(series *models.TestSeries, minRuns int) *models.FlakinessMeasure {
	history := series.History
	n := len(history)
	if n < minRuns {
		return nil
	}

	transitions := 0
	timeouts := 0
	durations := make([]float64, 0, n)
	for i, obs := range history {
		if i > 0 && obs.Status != history[i-1].Status {
			transitions++
		}
		if obs.Status == models.StatusTimedOut {
			timeouts++
		}
		durations = append(durations, float64(obs.DurationMS))
	}

	statusChangeFactor := math.Min(100, float64(transitions)/float64(n-1)*100)
	timeoutFactor := math.Min(100, float64(timeouts)/float64(n)*100)

	cv := coefficientOfVariation(durations)
	variancePct := cv * 100
	durationFactor := math.Min(100, variancePct/2)

	alternating := n >= alternatingMinRuns &&
		float64(transitions)/float64(n-1) > alternatingRatio
	alternatingFactor := 0.0
	if alternating {
		alternatingFactor = 100
	}

	score := math.Min(100,
		weightStatusChange*statusChangeFactor+
			weightTimeout*timeoutFactor+
			weightDuration*durationFactor+
			weightAlternating*alternatingFactor)

	// Confidence ramps linearly with history length and saturates at 10
	// observations.
	confidence := math.Min(100, float64(n)/10*100)

	m := &models.FlakinessMeasure{
		TestID:             series.TestID,
		Score:              score,
		Confidence:         confidence,
		StatusChanges:      transitions,
		Timeouts:           timeouts,
		DurationVariancePC: variancePct,
		Alternating:        alternating,
		TimeoutPattern:     timeouts > 0,
		LastChanged:        history[n-1].Timestamp,
	}
	m.DetectedPatterns = detectPatterns(m)
	m.Recommendations = recommend(m, statusChangeFactor)
	return m
}

// coefficientOfVariation is the population standard deviation divided by the
// mean, or 0 for an empty input or a zero mean.
func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(values)))
	return stddev / mean
}
