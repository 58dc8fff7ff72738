package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"realtyimport/domain"
	"realtyimport/importer"
	"realtyimport/internal/config"
	"realtyimport/internal/usecase/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImportConfig(t *testing.T, status int, body string) config.ImportConfig {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return config.ImportConfig{
		FeedURL:      server.URL,
		ReportFile:   filepath.Join(t.TempDir(), "report.xml"),
		Format:       "realtypult",
		TempDir:      t.TempDir(),
		FetchTimeout: 5 * time.Second,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunImport_SavesRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	runs := mocks.NewMockRunStorage(ctrl)
	cfg := newImportConfig(t, http.StatusOK, `<root><object id="1"/><object id="2"/></root>`)

	var saved domain.ImportRun
	runs.EXPECT().SaveRun(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, run domain.ImportRun) error {
		saved = run
		return nil
	})
	handler := func(ctx context.Context, item domain.Listing, reply importer.ReplyFunc) {
		if item.ID == "1" {
			reply(domain.Placed{URL: "http://your-site.ru/item-1"})
			return
		}
		reply(domain.Rejected{Reason: "no price"})
	}

	run, err := NewImportRunUseCase(cfg, handler, runs, discard()).RunImport(context.Background())

	require.NoError(t, err)
	assert.Equal(t, run, saved)
	assert.True(t, run.Succeeded())
	assert.Equal(t, domain.Statistics{Total: 2, Success: 1, Rejected: 1}, run.Statistics)
	assert.Equal(t, cfg.FeedURL, run.FeedURL)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.FileExists(t, cfg.ReportFile)
}

func TestRunImport_FailureIsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	runs := mocks.NewMockRunStorage(ctrl)
	cfg := newImportConfig(t, http.StatusNotFound, "")

	runs.EXPECT().SaveRun(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, run domain.ImportRun) error {
		assert.False(t, run.Succeeded())
		assert.Contains(t, run.Error, "unexpected status code: 404")
		return nil
	})

	_, err := NewImportRunUseCase(cfg, func(context.Context, domain.Listing, importer.ReplyFunc) {}, runs, discard()).
		RunImport(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, importer.ErrNetwork))
}

func TestRunImport_SaveRunErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	runs := mocks.NewMockRunStorage(ctrl)
	cfg := newImportConfig(t, http.StatusOK, `<root></root>`)
	runs.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err := NewImportRunUseCase(cfg, func(context.Context, domain.Listing, importer.ReplyFunc) {}, runs, discard()).
		RunImport(context.Background())

	assert.NoError(t, err)
}

func TestRunImport_InvalidConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	runs := mocks.NewMockRunStorage(ctrl)
	cfg := newImportConfig(t, http.StatusOK, `<root></root>`)
	cfg.Format = "avito"

	_, err := NewImportRunUseCase(cfg, func(context.Context, domain.Listing, importer.ReplyFunc) {}, runs, discard()).
		RunImport(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, importer.ErrConfiguration))
}
