package migrations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration - одна миграция схемы. ID задает порядок применения
// и записывается в schema_migrations.
type Migration struct {
	ID    string
	UpSQL string
}

var allMigrations = []Migration{
	{
		ID: "20261001120000_create_listings_table",
		UpSQL: `
		CREATE TABLE listings(
		id UUID PRIMARY KEY,
		format TEXT NOT NULL,
		external_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		payload JSONB NOT NULL,
		views INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (format, external_id)
		);
		CREATE INDEX listings_fingerprint_idx ON listings (fingerprint);`,
	},
	{
		ID: "20261001120100_create_listing_images_table",
		UpSQL: `
		CREATE TABLE listing_images(
		listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (listing_id, position)
		);`,
	},
	{
		ID: "20261001120200_create_import_runs_table",
		UpSQL: `
		CREATE TABLE import_runs(
		id UUID PRIMARY KEY,
		feed_url TEXT NOT NULL,
		format TEXT NOT NULL,
		report_file TEXT NOT NULL,
		total INTEGER NOT NULL,
		success INTEGER NOT NULL,
		rejected INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
		);`,
	},
}

// Apply применяет все необходимые миграции к базе данных.
func Apply(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool) error {
	log = log.With(slog.String("component", "migrations"))
	log.Info("Starting database migrations check...")
	_, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
	id TEXT PRIMARY KEY
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	applied, err := appliedIDs(ctx, pool)
	if err != nil {
		return err
	}
	pending := Pending(applied)
	if len(pending) == 0 {
		log.Info("Database is up to date, no new migrations found.")
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, m := range pending {
		log.Info("Applying migration", slog.String("id", m.ID))
		if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (id) VALUES ($1)", m.ID); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations transaction: %w", err)
	}
	log.Info("Database migrations applied successfully", slog.Int("count", len(pending)))
	return nil
}

func appliedIDs(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration id: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// Pending возвращает непримененные миграции в порядке ID.
func Pending(applied map[string]bool) []Migration {
	sorted := make([]Migration, len(allMigrations))
	copy(sorted, allMigrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	var pending []Migration
	for _, m := range sorted {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	return pending
}
