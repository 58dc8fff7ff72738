package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"realtyimport/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultRunsLimit - размер выборки RecentRuns при n <= 0.
const DefaultRunsLimit = 10

// PostgresListingDB хранит объявления, их изображения и журнал запусков
// импорта в PostgreSQL. Все операции выполняются через общий пул соединений.
type PostgresListingDB struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ Storage = (*PostgresListingDB)(nil)

// NewPostgresListingDB создает хранилище поверх готового пула.
// Пул должен быть проверен (Ping) и мигрирован заранее.
func NewPostgresListingDB(pool *pgxpool.Pool, log *slog.Logger) *PostgresListingDB {
	log.Info("Initializing Postgres listing storage")
	return &PostgresListingDB{
		pool: pool,
		log:  log.With(slog.String("component", "storage")),
	}
}

// Close закрывает пул соединений. После вызова хранилище непригодно.
func (db *PostgresListingDB) Close() {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
}

// FindSimilar ищет другое объявление с тем же отпечатком содержимого.
// Возвращает его идентификатор.
func (db *PostgresListingDB) FindSimilar(ctx context.Context, rec domain.ListingRecord) (string, bool, error) {
	const op = "storage.postgres.FindSimilar"
	query := `
	SELECT id
	FROM listings
	WHERE fingerprint = $1 AND NOT (format = $2 AND external_id = $3)
	ORDER BY created_at
	LIMIT 1;
	`
	var id uuid.UUID
	err := db.pool.QueryRow(ctx, query, rec.Fingerprint, rec.Format, rec.ExternalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		db.log.Error("Database query failed", slog.String("op", op), slog.Any("error", err))
		return "", false, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return id.String(), true, nil
}

// SaveListing вставляет или обновляет объявление по (format, external_id)
// и заменяет список его изображений. Все в одной транзакции.
func (db *PostgresListingDB) SaveListing(ctx context.Context, rec domain.ListingRecord) (stored domain.StoredListing, err error) {
	const op = "storage.postgres.SaveListing"
	log := db.log.With(slog.String("op", op), slog.String("external_id", rec.ExternalID))

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", slog.Any("error", err))
		return stored, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()

	upsert := `
	INSERT INTO listings (id, format, external_id, fingerprint, payload)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (format, external_id) DO UPDATE
	SET fingerprint = EXCLUDED.fingerprint, payload = EXCLUDED.payload, updated_at = now()
	RETURNING id, views;
	`
	err = tx.QueryRow(ctx, upsert, uuid.New(), rec.Format, rec.ExternalID, rec.Fingerprint, rec.Payload).
		Scan(&stored.ID, &stored.Views)
	if err != nil {
		log.Error("Failed to upsert listing", slog.Any("error", err))
		return stored, fmt.Errorf("%s: failed to upsert listing: %w", op, err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM listing_images WHERE listing_id = $1;`, stored.ID)
	for i, image := range rec.Images {
		batch.Queue(
			`INSERT INTO listing_images (listing_id, position, url) VALUES ($1, $2, $3);`,
			stored.ID,
			i,
			image,
		)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Error("Failed to execute batch", slog.Any("error", err))
		return stored, fmt.Errorf("%s: failed to execute batch: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", slog.Any("error", err))
		return stored, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	log.Debug("Listing saved", slog.String("id", stored.ID.String()), slog.Int("images", len(rec.Images)))
	return stored, nil
}

// SaveRun добавляет запись в журнал запусков.
func (db *PostgresListingDB) SaveRun(ctx context.Context, run domain.ImportRun) error {
	const op = "storage.postgres.SaveRun"
	query := `
	INSERT INTO import_runs (id, feed_url, format, report_file, total, success, rejected, errors, error, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := db.pool.Exec(ctx, query,
		run.ID,
		run.FeedURL,
		run.Format,
		run.ReportFile,
		run.Statistics.Total,
		run.Statistics.Success,
		run.Statistics.Rejected,
		run.Statistics.Errors,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		db.log.Error("Failed to save import run", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to insert run: %w", op, err)
	}
	return nil
}

// RecentRuns возвращает n последних запусков, новые первыми.
func (db *PostgresListingDB) RecentRuns(ctx context.Context, n int) ([]domain.ImportRun, error) {
	limit := n
	if limit <= 0 {
		limit = DefaultRunsLimit
	}
	const op = "storage.postgres.RecentRuns"
	log := db.log.With(slog.String("op", op), slog.Int("limit", limit))
	query := `
	SELECT id, feed_url, format, report_file, total, success, rejected, errors, error, started_at, finished_at
	FROM import_runs
	ORDER BY started_at DESC
	LIMIT $1;
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ImportRun, error) {
		var run domain.ImportRun
		err := row.Scan(
			&run.ID,
			&run.FeedURL,
			&run.Format,
			&run.ReportFile,
			&run.Statistics.Total,
			&run.Statistics.Success,
			&run.Statistics.Rejected,
			&run.Statistics.Errors,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		)
		return run, err
	})
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Debug("Import runs retrieved", slog.Int("count", len(runs)))
	return runs, nil
}
