package usecase

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"

	"realtyimport/domain"
)

// ListingStore определяет хранилище объявлений для обработчика импорта.
type ListingStore interface {
	FindSimilar(ctx context.Context, rec domain.ListingRecord) (string, bool, error)
	SaveListing(ctx context.Context, rec domain.ListingRecord) (domain.StoredListing, error)
}

// RunStorage сохраняет итоги запусков импорта.
type RunStorage interface {
	SaveRun(ctx context.Context, run domain.ImportRun) error
}

// RunReader определяет интерфейс чтения журнала запусков.
type RunReader interface {
	RecentRuns(ctx context.Context, n int) ([]domain.ImportRun, error)
}
