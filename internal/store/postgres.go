package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	kindSnapshot = "snapshot"
	kindReport   = "report"
)

// PostgresStore persists snapshots and reports as single JSONB rows, one per
// state kind. Saves are upserts, so the table never grows past two rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Migrate runs database migrations.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// LoadSnapshot reads the persisted success-rate snapshot.
func (p *PostgresStore) LoadSnapshot(ctx context.Context) (*models.ProjectSuccessSnapshot, error) {
	var snapshot models.ProjectSuccessSnapshot
	if err := p.load(ctx, kindSnapshot, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Series == nil {
		snapshot.Series = make(map[string]*models.TestSeries)
	}
	return &snapshot, nil
}

// SaveSnapshot upserts the success-rate snapshot.
func (p *PostgresStore) SaveSnapshot(ctx context.Context, snapshot *models.ProjectSuccessSnapshot) error {
	return p.save(ctx, kindSnapshot, snapshot)
}

// LoadReport reads the persisted flakiness report.
func (p *PostgresStore) LoadReport(ctx context.Context) (*models.ProjectFlakinessReport, error) {
	var report models.ProjectFlakinessReport
	if err := p.load(ctx, kindReport, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveReport upserts the flakiness report.
func (p *PostgresStore) SaveReport(ctx context.Context, report *models.ProjectFlakinessReport) error {
	return p.save(ctx, kindReport, report)
}

func (p *PostgresStore) load(ctx context.Context, kind string, v any) error {
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT payload FROM analytics_state WHERE kind = $1`, kind,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", kind, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", kind, err)
	}
	return nil
}

func (p *PostgresStore) save(ctx context.Context, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO analytics_state (kind, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (kind) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		kind, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}
