// Package api provides the operational HTTP endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"encoding/json"

	"github.com/sofia-labs/sofia/internal/session"
	"github.com/sofia-labs/sofia/internal/store"
)

// Handler serves health and stats for monitoring.
type Handler struct {
	store    store.FactStore
	sessions *session.Registry
	started  time.Time
}

// NewHandler creates a handler over the live store and session registry.
func NewHandler(s store.FactStore, sessions *session.Registry) *Handler {
	return &Handler{store: s, sessions: sessions, started: time.Now()}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Healthz reports process and store health. A failing store ping turns
// the response into a 503 so orchestration can restart or route around us.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  err.Error(),
		})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats reports live session counts and uptime.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"sessions":       h.sessions.Len(),
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}
