package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flakewatch_batches_ingested_total",
		Help: "Run batches accepted by the ingest endpoint.",
	})
	outcomesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flakewatch_outcomes_recorded_total",
		Help: "Individual test outcomes recorded.",
	})
	analysesRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flakewatch_analyses_total",
		Help: "Flakiness analyses triggered by ingests.",
	})
	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flakewatch_persist_failures_total",
		Help: "Failed snapshot or report persists during ingest.",
	})
)
