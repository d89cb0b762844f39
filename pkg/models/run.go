// Package models defines the shared data types for flakewatch: run batches
// fed in by test-execution collaborators and the derived success-rate and
// flakiness structures served back out.
package models

import (
	"fmt"
	"time"
)

// RunStatus represents the outcome of a single test execution.
type RunStatus string

const (
	StatusPassed   RunStatus = "passed"
	StatusFailed   RunStatus = "failed"
	StatusSkipped  RunStatus = "skipped"
	StatusTimedOut RunStatus = "timed_out"
)

// Valid reports whether s is one of the known run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped, StatusTimedOut:
		return true
	}
	return false
}

// TestOutcome represents one test's result within a batch.
type TestOutcome struct {
	TestID     string    `json:"test_id"`
	Status     RunStatus `json:"status"`
	DurationMS int64     `json:"duration_ms"`
}

// Batch represents one execution of a test suite: outcomes for multiple
// tests recorded at the same timestamp.
type Batch struct {
	BatchID   string        `json:"batch_id"`
	Timestamp time.Time     `json:"timestamp"`
	Outcomes  []TestOutcome `json:"outcomes"`
}

// Validate checks that the batch is well-formed. A malformed batch is
// rejected as a whole; nothing from it is ingested.
func (b *Batch) Validate() error {
	if b.BatchID == "" {
		return fmt.Errorf("batch is missing a batch_id")
	}
	if b.Timestamp.IsZero() {
		return fmt.Errorf("batch %s is missing a timestamp", b.BatchID)
	}
	if len(b.Outcomes) == 0 {
		return fmt.Errorf("batch %s has no outcomes", b.BatchID)
	}
	for i, o := range b.Outcomes {
		if o.TestID == "" {
			return fmt.Errorf("batch %s: outcome %d is missing a test_id", b.BatchID, i)
		}
		if !o.Status.Valid() {
			return fmt.Errorf("batch %s: outcome %d has unknown status %q", b.BatchID, i, o.Status)
		}
		if o.DurationMS < 0 {
			return fmt.Errorf("batch %s: outcome %d has negative duration %d", b.BatchID, i, o.DurationMS)
		}
	}
	return nil
}
