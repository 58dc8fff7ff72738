package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"realtyimport/domain"
	"realtyimport/internal/config"
	"realtyimport/internal/logger"
	"realtyimport/internal/migrations"
	server "realtyimport/internal/transport/http"
	"realtyimport/internal/usecase"
	"realtyimport/internal/worker"
	"realtyimport/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App связывает компоненты импортера: логгер, пул PostgreSQL,
// хранилище объявлений, обработчик объявлений и запуск импорта.
type App struct {
	config  *config.Config
	logger  *slog.Logger
	storage *storage.PostgresListingDB
	runner  *usecase.ImportRunUseCase
	history *usecase.RunHistoryUseCase
}

// New выполняет настройку логгера, подключение к базе данных,
// применение миграций и инициализацию зависимостей.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)

	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	appLogger.Info("Database connection established", slog.String("component", "database"))
	if err := migrations.Apply(ctx, appLogger, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	dbStorage := storage.NewPostgresListingDB(dbPool, appLogger)
	placer := usecase.NewListingPlacer(dbStorage, cfg.Listing)
	runner := usecase.NewImportRunUseCase(cfg.Import, placer.Handle, dbStorage, appLogger)

	return &App{
		config:  cfg,
		logger:  appLogger,
		storage: dbStorage,
		runner:  runner,
		history: usecase.NewRunHistoryUseCase(dbStorage),
	}, nil
}

// RunOnce выполняет один импорт.
func (a *App) RunOnce(ctx context.Context) (domain.ImportRun, error) {
	return a.runner.RunImport(ctx)
}

// RunScheduled запускает импорт с интервалом import.interval и блокируется
// до сигнала SIGINT или SIGTERM. Если задан server.address, параллельно
// работает статусный HTTP API.
func (a *App) RunScheduled(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(a.runner, a.config.Import.Interval, a.logger)
	a.logger.Info("Starting scheduled import",
		slog.String("component", "app"),
		slog.String("interval", w.GetInterval().String()),
	)

	var wg sync.WaitGroup
	var httpServer *http.Server
	if addr := a.config.Server.Address; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to create listener: %w", err)
		}
		handler := server.NewHandler(a.logger, a.history, w, a.config.Import.ReportFile)
		httpServer = &http.Server{
			Addr:              addr,
			Handler:           server.NewServer(a.logger, handler),
			ReadHeaderTimeout: 10 * time.Second,
		}
		a.logger.Info("HTTP server ready",
			slog.String("component", "server"),
			slog.String("address", ln.Addr().String()),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server failed", slog.String("component", "server"), slog.Any("error", err))
				stop()
			}
		}()
	}

	w.Start(ctx)
	<-ctx.Done()
	a.logger.Info("Shutdown signal received", slog.String("component", "app"))
	w.Stop()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown failed", slog.String("component", "server"), slog.Any("error", err))
		}
	}
	wg.Wait()
	return nil
}

// History возвращает последние n запусков импорта.
func (a *App) History(ctx context.Context, n int) ([]domain.ImportRun, error) {
	return a.history.RecentRuns(ctx, n)
}

// Shutdown закрывает соединение с базой данных.
func (a *App) Shutdown() {
	a.storage.Close()
	a.logger.Info("Application stopped", slog.String("component", "app"))
}
