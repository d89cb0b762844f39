package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kamilpajak/flakewatch/internal/store"
	"github.com/kamilpajak/flakewatch/pkg/models"
)

func newTestTracker(t *testing.T, opts ...Option) *SuccessRateTracker {
	t.Helper()
	return New(context.Background(), store.NewMemoryStore(), zap.NewNop(), opts...)
}

func batchAt(ts time.Time, id string, outcomes ...models.TestOutcome) *models.Batch {
	return &models.Batch{BatchID: id, Timestamp: ts, Outcomes: outcomes}
}

func outcome(testID string, status models.RunStatus) models.TestOutcome {
	return models.TestOutcome{TestID: testID, Status: status, DurationMS: 100}
}

func TestIngestCountersStayConsistent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now()

	statuses := []models.RunStatus{
		models.StatusPassed, models.StatusFailed, models.StatusSkipped,
		models.StatusTimedOut, models.StatusPassed,
	}
	for i, status := range statuses {
		_, err := tr.Ingest(ctx, batchAt(now.Add(time.Duration(i)*time.Minute),
			fmt.Sprintf("batch-%d", i), outcome("login.spec.ts", status)))
		require.NoError(t, err)
	}

	series := tr.Query(nil).Series["login.spec.ts"]
	require.NotNil(t, series)
	assert.Equal(t, 5, series.TotalRuns)
	assert.Equal(t, 2, series.SuccessfulRuns)
	assert.Equal(t, 2, series.FailedRuns) // failed + timed_out
	assert.Equal(t, 1, series.SkippedRuns)
	assert.Equal(t, series.TotalRuns, series.SuccessfulRuns+series.FailedRuns+series.SkippedRuns)

	// Stored rate matches rederiving it from the raw counters.
	expected := float64(series.SuccessfulRuns) / float64(series.TotalRuns) * 100
	assert.Equal(t, expected, series.SuccessRate)
}

func TestIngestEvictsOldestAtCapacity(t *testing.T) {
	tr := newTestTracker(t, WithCapacity(3))
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		_, err := tr.Ingest(ctx, batchAt(now.Add(time.Duration(i)*time.Minute),
			fmt.Sprintf("batch-%d", i), outcome("a", models.StatusPassed)))
		require.NoError(t, err)
	}

	series := tr.Query(nil).Series["a"]
	require.Len(t, series.History, 3)
	// FIFO: the two oldest batches were evicted.
	assert.Equal(t, "batch-2", series.History[0].BatchID)
	assert.Equal(t, "batch-4", series.History[2].BatchID)
	// Lifetime counters keep counting past the history bound.
	assert.Equal(t, 5, series.TotalRuns)
}

func TestIngestRejectsMalformedBatch(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		batch *models.Batch
	}{
		{"missing batch id", &models.Batch{Timestamp: time.Now(),
			Outcomes: []models.TestOutcome{outcome("a", models.StatusPassed)}}},
		{"missing timestamp", &models.Batch{BatchID: "b",
			Outcomes: []models.TestOutcome{outcome("a", models.StatusPassed)}}},
		{"no outcomes", &models.Batch{BatchID: "b", Timestamp: time.Now()}},
		{"empty test id", batchAt(time.Now(), "b", outcome("", models.StatusPassed))},
		{"unknown status", batchAt(time.Now(), "b", outcome("a", "exploded"))},
		{"negative duration", batchAt(time.Now(), "b",
			models.TestOutcome{TestID: "a", Status: models.StatusPassed, DurationMS: -1})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tr.Ingest(ctx, tc.batch)
			assert.Error(t, err)
		})
	}

	// Nothing from any malformed batch was ingested.
	assert.Empty(t, tr.Query(nil).Series)
}

func TestOverallRateIsUnweightedMean(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now()

	// "a" passes twice (100%), "b" fails once (0%). A run-weighted mean
	// would be 66.7; each test counts equally, so the overall rate is 50.
	_, err := tr.Ingest(ctx, batchAt(now, "b1",
		outcome("a", models.StatusPassed), outcome("b", models.StatusFailed)))
	require.NoError(t, err)
	_, err = tr.Ingest(ctx, batchAt(now.Add(time.Minute), "b2",
		outcome("a", models.StatusPassed)))
	require.NoError(t, err)

	snapshot := tr.Query(nil)
	assert.InDelta(t, 50.0, snapshot.OverallSuccessRate, 0.01)
	assert.Equal(t, 2, snapshot.TotalTests)
}

func TestQueryWithoutWindowIsIdempotent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.Ingest(ctx, batchAt(time.Now(), "b1", outcome("a", models.StatusPassed)))
	require.NoError(t, err)

	first := tr.Query(nil)
	second := tr.Query(nil)
	assert.Equal(t, first, second)

	// Mutating the returned copy must not leak into the live snapshot.
	first.Series["a"].SuccessfulRuns = 99
	assert.Equal(t, 1, tr.Query(nil).Series["a"].SuccessfulRuns)
}

func TestQueryWithWindowProjects(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := tr.Ingest(ctx, batchAt(base, "old", outcome("a", models.StatusFailed)))
	require.NoError(t, err)
	_, err = tr.Ingest(ctx, batchAt(base.AddDate(0, 0, 5), "new", outcome("a", models.StatusPassed)))
	require.NoError(t, err)

	// Window covering only the newer run: rate derives from it alone.
	window := &models.TimeWindow{Start: base.AddDate(0, 0, 3), End: base.AddDate(0, 0, 7)}
	projected := tr.Query(window)
	series := projected.Series["a"]
	assert.Equal(t, 1, series.TotalRuns)
	assert.Equal(t, 100.0, series.SuccessRate)

	// Window with no observations yields rate 0, not an error.
	empty := tr.Query(&models.TimeWindow{
		Start: base.AddDate(0, 0, 10), End: base.AddDate(0, 0, 20)})
	assert.Equal(t, 0.0, empty.Series["a"].SuccessRate)
	assert.Empty(t, empty.Series["a"].History)

	// The projection never touched the live state.
	assert.Equal(t, 2, tr.Query(nil).Series["a"].TotalRuns)
}

func TestIngestSurfacesPersistFailureButKeepsState(t *testing.T) {
	st := &failingStore{Store: store.NewMemoryStore()}
	tr := New(context.Background(), st, zap.NewNop())
	ctx := context.Background()

	st.failSaves = true
	snapshot, err := tr.Ingest(ctx, batchAt(time.Now(), "b1", outcome("a", models.StatusPassed)))
	assert.Error(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 1, snapshot.Series["a"].TotalRuns)

	// The in-memory state still reflects the update.
	assert.Equal(t, 1, tr.Query(nil).Series["a"].TotalRuns)
}

func TestNewRecoversFromCorruptSnapshot(t *testing.T) {
	st := &failingStore{Store: store.NewMemoryStore(), failLoads: true}
	tr := New(context.Background(), st, zap.NewNop())
	assert.Empty(t, tr.Query(nil).Series)
}

// failingStore wraps a Store and fails on demand.
type failingStore struct {
	store.Store
	failSaves bool
	failLoads bool
}

func (f *failingStore) SaveSnapshot(ctx context.Context, s *models.ProjectSuccessSnapshot) error {
	if f.failSaves {
		return fmt.Errorf("disk full")
	}
	return f.Store.SaveSnapshot(ctx, s)
}

func (f *failingStore) LoadSnapshot(ctx context.Context) (*models.ProjectSuccessSnapshot, error) {
	if f.failLoads {
		return nil, fmt.Errorf("corrupt snapshot")
	}
	return f.Store.LoadSnapshot(ctx)
}
