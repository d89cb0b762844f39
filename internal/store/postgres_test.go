package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kamilpajak/flakewatch/pkg/models"
)

// testPostgres starts a throwaway Postgres container, runs migrations, and
// returns a connected store. Skips when Docker is unavailable.
func testPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	// testcontainers panics (rather than returning an error) when no Docker
	// host can be detected; convert that into the skip path below.
	container, err := func() (c *tcpostgres.PostgresContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("flakewatch"),
			tcpostgres.WithUsername("flakewatch"),
			tcpostgres.WithPassword("flakewatch"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).WithStartupTimeout(time.Minute)),
		)
	}()
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(url))

	pg, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	return pg
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	pg := testPostgres(t)
	ctx := context.Background()

	_, err := pg.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	snapshot := sampleSnapshot()
	require.NoError(t, pg.SaveSnapshot(ctx, snapshot))

	loaded, err := pg.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	report := sampleReport()
	require.NoError(t, pg.SaveReport(ctx, report))

	loadedReport, err := pg.LoadReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, report, loadedReport)
}

func TestPostgresStoreSaveOverwrites(t *testing.T) {
	pg := testPostgres(t)
	ctx := context.Background()

	first := sampleSnapshot()
	require.NoError(t, pg.SaveSnapshot(ctx, first))

	second := sampleSnapshot()
	second.OverallSuccessRate = 75
	second.Series["signup.spec.ts"] = &models.TestSeries{TestID: "signup.spec.ts"}
	require.NoError(t, pg.SaveSnapshot(ctx, second))

	loaded, err := pg.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 75.0, loaded.OverallSuccessRate)
	assert.Len(t, loaded.Series, 2)
}
