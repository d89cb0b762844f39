// Package flakiness derives multi-factor flakiness scores from the run
// histories maintained by the tracker and aggregates them into a
// project-wide report.
package flakiness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kamilpajak/flakewatch/internal/store"
	"github.com/kamilpajak/flakewatch/pkg/models"
)

// Defaults for analysis parameters.
const (
	DefaultAnalysisDays   = 30
	DefaultMinRuns        = 3
	DefaultThreshold      = 70.0
	DefaultMostFlakyLimit = 10
)

// Source is the tracker surface the analyzer composes. Analysis only ever
// reads through Query; Ingest exists solely for the UpdateWithNewResult
// convenience path.
type Source interface {
	Ingest(ctx context.Context, batch *models.Batch) (*models.ProjectSuccessSnapshot, error)
	Query(window *models.TimeWindow) *models.ProjectSuccessSnapshot
}

// Analyzer computes per-test flakiness measures and persists a project-wide
// report after every analysis.
type Analyzer struct {
	source    Source
	store     store.Store
	logger    *zap.Logger
	threshold float64

	now func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThreshold overrides the score at which a test counts as flaky.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) { a.threshold = threshold }
}

// New creates an Analyzer over the given history source and store.
func New(source Source, st store.Store, logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		source:    source,
		store:     st,
		logger:    logger,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze pulls the trailing days of history from the source, scores every
// series with at least minRuns observations, aggregates a confidence-weighted
// project score, persists the report, and returns it. Series below minRuns
// are excluded, not scored as zero. The report is regenerated wholesale.
func (a *Analyzer) Analyze(ctx context.Context, days, minRuns int) (*models.ProjectFlakinessReport, error) {
	return a.AnalyzeWithThreshold(ctx, days, minRuns, a.threshold)
}

// AnalyzeWithThreshold is Analyze with a per-call flaky threshold, for
// callers that let the consumer pick the cutoff.
func (a *Analyzer) AnalyzeWithThreshold(ctx context.Context, days, minRuns int, threshold float64) (*models.ProjectFlakinessReport, error) {
	if days <= 0 {
		days = DefaultAnalysisDays
	}
	if minRuns <= 0 {
		minRuns = DefaultMinRuns
	}

	now := a.now()
	window := models.TimeWindow{Start: now.AddDate(0, 0, -days), End: now}
	snapshot := a.source.Query(&window)

	// Iterate in test-id order so the persisted report is stable across
	// identical analyses.
	ids := make([]string, 0, len(snapshot.Series))
	for id := range snapshot.Series {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := models.NewProjectFlakinessReport(threshold)
	for _, id := range ids {
		measure := scoreSeries(snapshot.Series[id], minRuns)
		if measure == nil {
			continue
		}
		report.Measures = append(report.Measures, *measure)
		if measure.Score >= threshold {
			report.FlakyTestsCount++
		}
	}
	report.OverallFlakinessScore = weightedOverall(report.Measures)
	report.TotalTestsAnalyzed = len(report.Measures)
	report.LastUpdated = now
	report.TimePeriod = window

	if err := a.store.SaveReport(ctx, report); err != nil {
		a.logger.Error("failed to persist flakiness report", zap.Error(err))
		return report, fmt.Errorf("failed to persist report: %w", err)
	}
	return report, nil
}

// weightedOverall aggregates per-test scores into a project score, weighting
// each by its confidence so well-observed tests dominate.
func weightedOverall(measures []models.FlakinessMeasure) float64 {
	var weightedSum, weightTotal float64
	for _, m := range measures {
		weightedSum += m.Score * m.Confidence / 100
		weightTotal += m.Confidence / 100
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

// MostFlaky loads the last persisted report and returns up to limit measures
// sorted by score, highest first. Ties keep their original order. It does
// not re-run the analysis.
func (a *Analyzer) MostFlaky(ctx context.Context, limit int) ([]models.FlakinessMeasure, error) {
	if limit <= 0 {
		limit = DefaultMostFlakyLimit
	}

	report, err := a.store.LoadReport(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return []models.FlakinessMeasure{}, nil
	}
	if err != nil {
		a.logger.Warn("failed to load flakiness report", zap.Error(err))
		return []models.FlakinessMeasure{}, nil
	}

	measures := append([]models.FlakinessMeasure(nil), report.Measures...)
	sort.SliceStable(measures, func(i, j int) bool {
		return measures[i].Score > measures[j].Score
	})
	if len(measures) > limit {
		measures = measures[:limit]
	}
	return measures, nil
}

// UpdateWithNewResult ingests a batch through the source and immediately
// re-analyzes with default parameters. The two persists are independent: a
// failed snapshot save does not stop the re-analysis, since the in-memory
// histories already reflect the batch.
func (a *Analyzer) UpdateWithNewResult(ctx context.Context, batch *models.Batch) (*models.ProjectFlakinessReport, error) {
	snapshot, err := a.source.Ingest(ctx, batch)
	if snapshot == nil {
		return nil, err
	}
	if err != nil {
		a.logger.Warn("snapshot persist failed, continuing with re-analysis", zap.Error(err))
	}
	return a.Analyze(ctx, DefaultAnalysisDays, DefaultMinRuns)
}
