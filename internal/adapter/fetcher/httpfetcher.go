package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout - ограничение на полную загрузку фида.
const DefaultTimeout = 2 * time.Minute

// UserAgent передается в заголовке каждого запроса фида.
var UserAgent = "realtyimport/1.0.0"

// HTTPFetcher скачивает XML-фид во временный файл.
// Повторных попыток не делает: любая сетевая ошибка фатальна для импорта.
type HTTPFetcher struct {
	client  *http.Client
	log     *slog.Logger
	tempDir string
}

// NewHTTPFetcher создает загрузчик с таймаутом timeout (0 - DefaultTimeout)
// и каталогом временных файлов tempDir (пустой - os.TempDir()).
func NewHTTPFetcher(log *slog.Logger, timeout time.Duration, tempDir string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		log:     log,
		tempDir: tempDir,
	}
}

// Download выполняет GET-запрос и потоково записывает тело ответа в новый
// временный файл. Возвращает путь к файлу. При ошибке частично записанный
// файл закрывается и удаляется.
func (f *HTTPFetcher) Download(ctx context.Context, url string) (string, error) {
	const op = "fetcher.Download"
	log := f.log.With(slog.String("op", op), slog.String("url", url))
	log.Info("Downloading feed")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return "", fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return "", fmt.Errorf("failed to fetch url %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("Unexpected status code", slog.Int("status_code", resp.StatusCode))
		return "", fmt.Errorf("unexpected status code: %d for url %s", resp.StatusCode, url)
	}

	path := TempPath(f.tempDir, "realtypult-feed")
	file, err := os.Create(path)
	if err != nil {
		log.Error("Failed to create temp file", slog.Any("error", err))
		return "", fmt.Errorf("failed to create temp file %s: %w", path, err)
	}
	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Error("Failed to store feed", slog.Any("error", err))
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn("Failed to remove partial feed file", slog.String("path", path), slog.Any("error", rmErr))
		}
		return "", fmt.Errorf("failed to download url %s: %w", url, err)
	}

	log.Info("Feed downloaded",
		slog.String("path", path),
		slog.Int64("bytes", written),
		slog.Duration("duration", time.Since(start)),
	)
	return path, nil
}

// TempPath возвращает уникальный путь вида <dir>/<prefix>-<random>.xml.
func TempPath(dir, prefix string) string {
	suffix := uuid.NewString()[:8]
	return filepath.Join(dir, fmt.Sprintf("%s-%s.xml", prefix, suffix))
}
