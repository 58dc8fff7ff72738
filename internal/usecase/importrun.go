package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"realtyimport/domain"
	"realtyimport/importer"
	"realtyimport/internal/config"

	"github.com/google/uuid"
)

const runSaveTimeout = 10 * time.Second

// ImportRunUseCase выполняет один импорт фида из конфигурации
// и записывает его итог в журнал запусков.
type ImportRunUseCase struct {
	cfg     config.ImportConfig
	handler importer.ItemHandler
	runs    RunStorage
	log     *slog.Logger
	opts    []importer.Option
}

// NewImportRunUseCase создает UseCase запуска импорта. opts дополняют
// параметры, построенные из конфигурации.
func NewImportRunUseCase(
	cfg config.ImportConfig,
	handler importer.ItemHandler,
	runs RunStorage,
	log *slog.Logger,
	opts ...importer.Option,
) *ImportRunUseCase {
	return &ImportRunUseCase{
		cfg:     cfg,
		handler: handler,
		runs:    runs,
		log:     log,
		opts:    opts,
	}
}

// RunImport выполняет полный цикл импорта: загрузку, обработку объявлений
// и замену отчета. Итог сохраняется в журнал даже при ошибке импорта;
// сбой записи журнала только логируется.
func (uc *ImportRunUseCase) RunImport(ctx context.Context) (domain.ImportRun, error) {
	run := domain.ImportRun{
		ID:         uuid.New(),
		FeedURL:    uc.cfg.FeedURL,
		Format:     uc.cfg.Format,
		ReportFile: uc.cfg.ReportFile,
		StartedAt:  time.Now().UTC(),
	}
	log := uc.log.With(
		slog.String("component", "import-runner"),
		slog.String("run_id", run.ID.String()),
		slog.String("url", run.FeedURL),
	)
	log.Info("Import run started")

	opts := []importer.Option{
		importer.WithLogger(log),
		importer.WithTempDir(uc.cfg.TempDir),
		importer.WithFetchTimeout(uc.cfg.FetchTimeout),
		importer.WithItemTimeout(uc.cfg.ItemTimeout),
	}
	im, err := importer.New(&importer.Options{
		XMLFeedURL:         uc.cfg.FeedURL,
		ReportFileLocation: uc.cfg.ReportFile,
		Format:             uc.cfg.Format,
		OnItem:             uc.handler,
		OnEnd: func(r domain.Report) {
			run.Statistics = r.Statistics
		},
		OnError: func(err error) {
			run.Error = err.Error()
		},
	}, append(opts, uc.opts...)...)
	if err != nil {
		log.Error("Import setup failed", slog.String("stage", "setup"), slog.Any("error", err))
		return run, fmt.Errorf("import setup failed: %w", err)
	}

	runErr := im.Run(ctx)
	run.FinishedAt = time.Now().UTC()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runSaveTimeout)
	defer cancel()
	if err := uc.runs.SaveRun(saveCtx, run); err != nil {
		log.Error("Import run save failed", slog.String("stage", "save"), slog.Any("error", err))
	}
	if runErr != nil {
		log.Error("Import run failed", slog.String("stage", "import"), slog.Any("error", runErr))
		return run, fmt.Errorf("import failed for %s: %w", run.FeedURL, runErr)
	}

	log.Info("Import run completed successfully",
		slog.Int("total", run.Statistics.Total),
		slog.Int("success", run.Statistics.Success),
		slog.Int("rejected", run.Statistics.Rejected),
		slog.Int("errors", run.Statistics.Errors),
		slog.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, nil
}
