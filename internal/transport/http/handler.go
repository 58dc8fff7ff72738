package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"realtyimport/domain"
)

type runHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]domain.ImportRun, error)
}

type workerStats interface {
	Stats() (succeeded, failed int64)
}

// Handler обслуживает API статуса импорта: журнал запусков,
// последний отчет и состояние планировщика.
type Handler struct {
	log        *slog.Logger
	history    runHistory
	stats      workerStats
	reportFile string
}

// NewHandler создает обработчики API. reportFile - путь к отчету,
// который отдает /api/report.
func NewHandler(log *slog.Logger, history runHistory, stats workerStats, reportFile string) *Handler {
	return &Handler{
		log:        log,
		history:    history,
		stats:      stats,
		reportFile: reportFile,
	}
}

// getRuns - хендлер для эндпоинта GET /api/runs
func (h *Handler) getRuns(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getRuns"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	if r.Method != http.MethodGet {
		log.Warn("method not allowed")
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	limitStr := r.URL.Query().Get("limit")
	limit := 10
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			log.Warn("invalid limit parameter", slog.String("limit", limitStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
	}

	runs, err := h.history.RecentRuns(r.Context(), limit)
	if err != nil {
		log.Error("Failed to get import runs", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if runs == nil {
		runs = []domain.ImportRun{}
	}
	respondWithJSON(w, http.StatusOK, runs)
}

// getReport отдает последний опубликованный отчет импорта.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	if _, err := os.Stat(h.reportFile); errors.Is(err, os.ErrNotExist) {
		respondWithError(w, http.StatusNotFound, "Report is not ready")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	http.ServeFile(w, r, h.reportFile)
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	succeeded, failed := h.stats.Stats()
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"succeeded": succeeded,
		"failed":    failed,
	})
}

// Вспомогательные функции для ответов
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
