// Package tracker maintains bounded per-test run histories and derives
// success rates and short-term trends from them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kamilpajak/flakewatch/internal/store"
	"github.com/kamilpajak/flakewatch/pkg/models"
)

// SuccessRateTracker ingests run batches, maintains per-test histories, and
// persists a project-wide snapshot after every mutation. A single mutex
// serializes all read-modify-persist operations within the process;
// cross-process writers against the same store still race (last writer wins).
type SuccessRateTracker struct {
	store    store.Store
	logger   *zap.Logger
	capacity int

	mu       sync.Mutex
	snapshot *models.ProjectSuccessSnapshot

	now func() time.Time
}

// Option configures a SuccessRateTracker.
type Option func(*SuccessRateTracker)

// WithCapacity overrides the per-test history capacity.
func WithCapacity(n int) Option {
	return func(t *SuccessRateTracker) { t.capacity = n }
}

// New loads the persisted snapshot from the store, falling back to a fresh
// empty snapshot if none exists or it cannot be read. Load failures are
// logged, never returned: missing history is a valid starting state.
func New(ctx context.Context, st store.Store, logger *zap.Logger, opts ...Option) *SuccessRateTracker {
	t := &SuccessRateTracker{
		store:    st,
		logger:   logger,
		capacity: DefaultHistoryCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	snapshot, err := st.LoadSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("failed to load success-rate snapshot, starting fresh", zap.Error(err))
		}
		snapshot = models.NewProjectSuccessSnapshot()
	}
	t.snapshot = snapshot
	return t
}

// Ingest applies one batch of outcomes to the tracked histories, recomputes
// the project-wide success rate, persists the snapshot, and returns a copy
// of it. A malformed batch is rejected whole. If persistence fails the
// in-memory state keeps the update and the error is surfaced alongside the
// snapshot.
func (t *SuccessRateTracker) Ingest(ctx context.Context, batch *models.Batch) (*models.ProjectSuccessSnapshot, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, outcome := range batch.Outcomes {
		series, ok := t.snapshot.Series[outcome.TestID]
		if !ok {
			series = &models.TestSeries{TestID: outcome.TestID, Trend: models.TrendUnknown}
			t.snapshot.Series[outcome.TestID] = series
		}
		appendObservation(series, models.RunObservation{
			Timestamp:  batch.Timestamp,
			Status:     outcome.Status,
			DurationMS: outcome.DurationMS,
			BatchID:    batch.BatchID,
		}, t.capacity)
	}

	t.snapshot.OverallSuccessRate = overallRate(t.snapshot.Series)
	t.snapshot.TotalTests = len(t.snapshot.Series)
	t.snapshot.LastUpdated = t.now()
	if t.snapshot.Window.Start.IsZero() || batch.Timestamp.Before(t.snapshot.Window.Start) {
		t.snapshot.Window.Start = batch.Timestamp
	}
	if batch.Timestamp.After(t.snapshot.Window.End) {
		t.snapshot.Window.End = batch.Timestamp
	}

	result := t.snapshot.Clone()

	if err := t.store.SaveSnapshot(ctx, t.snapshot); err != nil {
		t.logger.Error("failed to persist success-rate snapshot", zap.Error(err))
		return result, fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return result, nil
}

// Query returns the current snapshot. With a nil window it is a deep copy of
// the live state. With a window it is a derived projection: each series'
// history is filtered to the window and its rate rederived from the filtered
// subset, as is the overall rate. Query never mutates persisted state.
func (t *SuccessRateTracker) Query(window *models.TimeWindow) *models.ProjectSuccessSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if window == nil {
		return t.snapshot.Clone()
	}

	projected := models.NewProjectSuccessSnapshot()
	projected.LastUpdated = t.snapshot.LastUpdated
	projected.Window = *window
	for id, series := range t.snapshot.Series {
		projected.Series[id] = filterSeries(series, *window)
	}
	projected.OverallSuccessRate = overallRate(projected.Series)
	projected.TotalTests = len(projected.Series)
	return projected
}
