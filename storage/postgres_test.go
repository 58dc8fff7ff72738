package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"realtyimport/domain"
	"realtyimport/internal/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты поднимают PostgreSQL через testcontainers-go.
// Запуск: GO_TEST_INTEGRATION=1 go test ./storage -v -count=1

func startPostgres(t *testing.T) (*PostgresListingDB, *pgxpool.Pool) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = pgxpool.New(ctx, dsn)
		return err == nil && pool.Ping(ctx) == nil
	}, 30*time.Second, 500*time.Millisecond)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migrations.Apply(ctx, log, pool))
	// повторный запуск не должен ничего применять
	require.NoError(t, migrations.Apply(ctx, log, pool))

	db := NewPostgresListingDB(pool, log)
	t.Cleanup(db.Close)
	return db, pool
}

func record(id, fingerprint string, images ...string) domain.ListingRecord {
	return domain.ListingRecord{
		Format:      "realtypult",
		ExternalID:  id,
		Fingerprint: fingerprint,
		Images:      images,
		Payload:     []byte(fmt.Sprintf(`{"id":%q}`, id)),
	}
}

func TestIntegration_SaveListing_UpsertKeepsID(t *testing.T) {
	db, pool := startPostgres(t)
	ctx := context.Background()

	first, err := db.SaveListing(ctx, record("679511", "fp-1", "a.jpg", "b.jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, 0, first.Views)

	second, err := db.SaveListing(ctx, record("679511", "fp-2", "c.jpg"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var images int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM listing_images WHERE listing_id = $1`, first.ID).Scan(&images))
	assert.Equal(t, 1, images)
}

func TestIntegration_FindSimilar(t *testing.T) {
	db, _ := startPostgres(t)
	ctx := context.Background()

	stored, err := db.SaveListing(ctx, record("1", "same"))
	require.NoError(t, err)

	_, found, err := db.FindSimilar(ctx, record("1", "same"))
	require.NoError(t, err)
	assert.False(t, found, "listing must not match itself")

	id, found, err := db.FindSimilar(ctx, record("2", "same"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored.ID.String(), id)

	_, found, err = db.FindSimilar(ctx, record("3", "other"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIntegration_Runs(t *testing.T) {
	db, _ := startPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 3; i++ {
		run := domain.ImportRun{
			ID:         uuid.New(),
			FeedURL:    "http://example.com/feed.xml",
			Format:     "realtypult",
			ReportFile: "/tmp/report.xml",
			Statistics: domain.Statistics{Total: i, Success: i},
			StartedAt:  now.Add(time.Duration(i) * time.Minute),
			FinishedAt: now.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if i == 2 {
			run.Error = "network error"
		}
		require.NoError(t, db.SaveRun(ctx, run))
	}

	runs, err := db.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].Statistics.Total)
	assert.False(t, runs[0].Succeeded())
	assert.Equal(t, 1, runs[1].Statistics.Total)
	assert.True(t, runs[1].Succeeded())

	runs, err = db.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
