package usecase

import (
	"context"

	"realtyimport/domain"
)

// RunHistoryUseCase отдает журнал запусков импорта.
type RunHistoryUseCase struct {
	storage RunReader
}

// NewRunHistoryUseCase создает use case поверх хранилища журнала.
func NewRunHistoryUseCase(s RunReader) *RunHistoryUseCase {
	return &RunHistoryUseCase{storage: s}
}

// RecentRuns возвращает последние limit запусков. limit <= 0 - размер по умолчанию хранилища.
func (uc *RunHistoryUseCase) RecentRuns(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	return uc.storage.RecentRuns(ctx, limit)
}
