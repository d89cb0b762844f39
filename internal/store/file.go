package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

const (
	snapshotFile = "success-rates.json"
	reportFile   = "flakiness-report.json"
)

// FileStore persists snapshots and reports as two JSON files under a results
// directory. Writes go to a temp file first and are renamed into place, so a
// crashed save never leaves a truncated file behind. A per-file mutex
// serializes writers within the process; cross-process writers still race
// (last writer wins).
type FileStore struct {
	dir        string
	snapshotMu sync.Mutex
	reportMu   sync.Mutex
}

// NewFileStore creates the results directory if needed and returns a
// FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the results directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// LoadSnapshot reads the success-rate snapshot file.
func (f *FileStore) LoadSnapshot(ctx context.Context) (*models.ProjectSuccessSnapshot, error) {
	f.snapshotMu.Lock()
	defer f.snapshotMu.Unlock()

	var snapshot models.ProjectSuccessSnapshot
	if err := f.readJSON(snapshotFile, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Series == nil {
		snapshot.Series = make(map[string]*models.TestSeries)
	}
	return &snapshot, nil
}

// SaveSnapshot overwrites the success-rate snapshot file.
func (f *FileStore) SaveSnapshot(ctx context.Context, snapshot *models.ProjectSuccessSnapshot) error {
	f.snapshotMu.Lock()
	defer f.snapshotMu.Unlock()
	return f.writeJSON(snapshotFile, snapshot)
}

// LoadReport reads the flakiness report file.
func (f *FileStore) LoadReport(ctx context.Context) (*models.ProjectFlakinessReport, error) {
	f.reportMu.Lock()
	defer f.reportMu.Unlock()

	var report models.ProjectFlakinessReport
	if err := f.readJSON(reportFile, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveReport overwrites the flakiness report file.
func (f *FileStore) SaveReport(ctx context.Context, report *models.ProjectFlakinessReport) error {
	f.reportMu.Lock()
	defer f.reportMu.Unlock()
	return f.writeJSON(reportFile, report)
}

func (f *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (f *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	// One retry on a transient write failure.
	if err := f.writeFile(name, data); err != nil {
		if err = f.writeFile(name, data); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileStore) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(f.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
