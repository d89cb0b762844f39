package flakiness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

// seriesOf builds a TestSeries whose history has the given statuses, one
// observation per minute, all with the given duration.
func seriesOf(durationMS int64, statuses ...models.RunStatus) *models.TestSeries {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	s := &models.TestSeries{TestID: "checkout.spec.ts › pays with card"}
	for i, status := range statuses {
		s.History = append(s.History, models.RunObservation{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Status:     status,
			DurationMS: durationMS,
			BatchID:    "b",
		})
	}
	s.TotalRuns = len(statuses)
	return s
}

func TestScoreSeriesBelowMinRuns(t *testing.T) {
	s := seriesOf(100, models.StatusPassed, models.StatusFailed)
	assert.Nil(t, scoreSeries(s, 3))
}

func TestScoreSeriesAlternating(t *testing.T) {
	// n=4, transitions=3, ratio 1.0 > 0.6.
	s := seriesOf(100,
		models.StatusPassed, models.StatusFailed,
		models.StatusPassed, models.StatusFailed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.True(t, m.Alternating)
	assert.Equal(t, 3, m.StatusChanges)
	assert.Equal(t, 0, m.Timeouts)
	// scf=100, tf=0, df=0 (constant durations), af=100:
	// 0.4*100 + 0.2*0 + 0.2*0 + 0.2*100 = 60.
	assert.InDelta(t, 60.0, m.Score, 0.01)
	assert.InDelta(t, 40.0, m.Confidence, 0.01) // 4 of 10 observations
	assert.Contains(t, m.DetectedPatterns, "alternating")
}

func TestScoreSeriesBlockPatternNotAlternating(t *testing.T) {
	// n=4, transitions=1, ratio 0.33.
	s := seriesOf(100,
		models.StatusPassed, models.StatusPassed,
		models.StatusFailed, models.StatusFailed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.False(t, m.Alternating)
	assert.NotContains(t, m.DetectedPatterns, "alternating")
}

func TestScoreSeriesShortHistoryNeverAlternates(t *testing.T) {
	// Perfect alternation but n=3 < 4.
	s := seriesOf(100,
		models.StatusPassed, models.StatusFailed, models.StatusPassed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.False(t, m.Alternating)
}

func TestScoreSeriesHighChurnCalibration(t *testing.T) {
	// 5 runs, 4 transitions, no timeouts, constant durations: the score
	// lands at 60 or above, the calibrated "high" range.
	s := seriesOf(100,
		models.StatusPassed, models.StatusFailed, models.StatusPassed,
		models.StatusFailed, models.StatusPassed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.GreaterOrEqual(t, m.Score, 60.0)
	assert.LessOrEqual(t, m.Score, 100.0)
}

func TestScoreSeriesTimeouts(t *testing.T) {
	s := seriesOf(100,
		models.StatusPassed, models.StatusTimedOut,
		models.StatusPassed, models.StatusTimedOut, models.StatusPassed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Timeouts)
	assert.True(t, m.TimeoutPattern)
	assert.Contains(t, m.DetectedPatterns, "timeout")
}

func TestScoreSeriesDurationVariance(t *testing.T) {
	s := seriesOf(0,
		models.StatusPassed, models.StatusPassed,
		models.StatusPassed, models.StatusPassed)
	durations := []int64{100, 100, 100, 2000}
	for i := range s.History {
		s.History[i].DurationMS = durations[i]
	}

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.Greater(t, m.DurationVariancePC, highVariancePct)
	assert.Contains(t, m.DetectedPatterns, "high duration variance")
	// Stable outcomes: variance alone keeps the score moderate.
	assert.Less(t, m.Score, 40.0)
}

func TestScoreSeriesZeroDurations(t *testing.T) {
	s := seriesOf(0,
		models.StatusPassed, models.StatusFailed, models.StatusPassed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.Equal(t, 0.0, m.DurationVariancePC)
}

func TestScoreSeriesConfidenceSaturates(t *testing.T) {
	statuses := make([]models.RunStatus, 12)
	for i := range statuses {
		statuses[i] = models.StatusPassed
	}
	m := scoreSeries(seriesOf(100, statuses...), 3)
	require.NotNil(t, m)
	assert.Equal(t, 100.0, m.Confidence)
}

func TestScoreSeriesLastChanged(t *testing.T) {
	s := seriesOf(100,
		models.StatusPassed, models.StatusFailed, models.StatusPassed)
	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.Equal(t, s.History[2].Timestamp, m.LastChanged)
}

func TestRecommendFallback(t *testing.T) {
	s := seriesOf(100,
		models.StatusPassed, models.StatusPassed,
		models.StatusPassed, models.StatusPassed)

	m := scoreSeries(s, 3)
	require.NotNil(t, m)
	assert.Empty(t, m.DetectedPatterns)
	require.Len(t, m.Recommendations, 1)
	assert.Contains(t, m.Recommendations[0], "manually")
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, coefficientOfVariation(nil))
	assert.Equal(t, 0.0, coefficientOfVariation([]float64{0, 0, 0}))
	assert.Equal(t, 0.0, coefficientOfVariation([]float64{5, 5, 5}))
	// Population stddev of {2,4} is 1, mean 3: cv = 1/3.
	assert.InDelta(t, 1.0/3.0, coefficientOfVariation([]float64{2, 4}), 1e-9)
}
