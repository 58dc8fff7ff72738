package http

import (
	"log/slog"
	"net/http"
)

// NewServer создает роутер статусного API импортера:
// /api/runs, /api/report и /api/health.
func NewServer(log *slog.Logger, h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", h.getRuns)
	mux.HandleFunc("/api/report", h.getReport)
	mux.HandleFunc("/api/health", h.healthCheck)
	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = requestIDMiddleware()(handler)
	return handler
}
