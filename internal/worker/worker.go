package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"realtyimport/domain"
)

// ImportRunner выполняет один импорт фида.
type ImportRunner interface {
	RunImport(ctx context.Context) (domain.ImportRun, error)
}

// Worker периодически запускает импорт. Запуски идут строго
// последовательно: тики, пришедшие во время импорта, пропускаются.
type Worker struct {
	runner   ImportRunner
	interval time.Duration
	log      *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	succeeded atomic.Int64
	failed    atomic.Int64
}

// New создает воркер. Первый импорт выполняется сразу после Start.
func New(runner ImportRunner, interval time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		runner:   runner,
		interval: interval,
		log:      log.With(slog.String("component", "worker")),
	}
}

// Start запускает воркер в отдельной горутине.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop отменяет текущий импорт и ждет завершения горутины воркера.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	w.log.Info("Import worker started", slog.String("interval", w.interval.String()))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-ctx.Done():
			w.log.Info("Worker stopping",
				slog.Int64("succeeded", w.succeeded.Load()),
				slog.Int64("failed", w.failed.Load()),
			)
			return
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	run, err := w.runner.RunImport(ctx)
	if err != nil {
		w.failed.Add(1)
		w.log.Error("Import cycle failed", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return
	}
	w.succeeded.Add(1)
	w.log.Info("Import cycle completed",
		slog.Int("total", run.Statistics.Total),
		slog.Duration("duration", time.Since(start)),
	)
}

// Stats возвращает число успешных и неудачных запусков.
func (w *Worker) Stats() (succeeded, failed int64) {
	return w.succeeded.Load(), w.failed.Load()
}

// GetInterval возвращает интервал запуска импорта.
func (w *Worker) GetInterval() time.Duration { return w.interval }
