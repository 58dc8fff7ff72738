package storage

import (
	"context"

	"realtyimport/domain"
)

// Storage определяет общий интерфейс хранилища импортера:
// объявления, журнал запусков и закрытие соединения.
type Storage interface {
	FindSimilar(ctx context.Context, rec domain.ListingRecord) (id string, found bool, err error)
	SaveListing(ctx context.Context, rec domain.ListingRecord) (domain.StoredListing, error)
	SaveRun(ctx context.Context, run domain.ImportRun) error
	RecentRuns(ctx context.Context, n int) ([]domain.ImportRun, error)
	Close()
}
