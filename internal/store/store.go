// Package store provides pluggable persistence for success-rate snapshots
// and flakiness reports. State is written as whole objects: every save fully
// replaces what was there before.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

// ErrNotFound is returned when no persisted state exists yet.
var ErrNotFound = errors.New("store: not found")

// Store persists the two derived views owned by the analytics core.
type Store interface {
	LoadSnapshot(ctx context.Context) (*models.ProjectSuccessSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *models.ProjectSuccessSnapshot) error
	LoadReport(ctx context.Context) (*models.ProjectFlakinessReport, error)
	SaveReport(ctx context.Context, report *models.ProjectFlakinessReport) error
}

// MemoryStore is an in-memory Store for tests and ephemeral use.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot *models.ProjectSuccessSnapshot
	report   *models.ProjectFlakinessReport
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadSnapshot returns the stored snapshot or ErrNotFound.
func (m *MemoryStore) LoadSnapshot(ctx context.Context) (*models.ProjectSuccessSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	return m.snapshot.Clone(), nil
}

// SaveSnapshot stores a copy of the snapshot.
func (m *MemoryStore) SaveSnapshot(ctx context.Context, snapshot *models.ProjectSuccessSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot.Clone()
	return nil
}

// LoadReport returns the stored report or ErrNotFound.
func (m *MemoryStore) LoadReport(ctx context.Context) (*models.ProjectFlakinessReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.report == nil {
		return nil, ErrNotFound
	}
	r := *m.report
	r.Measures = append([]models.FlakinessMeasure(nil), m.report.Measures...)
	return &r, nil
}

// SaveReport stores a copy of the report.
func (m *MemoryStore) SaveReport(ctx context.Context, report *models.ProjectFlakinessReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *report
	r.Measures = append([]models.FlakinessMeasure(nil), report.Measures...)
	m.report = &r
	return nil
}
