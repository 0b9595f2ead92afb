// Package alerts exposes the end-user alert endpoints: list, mark
// read, snooze, archive. Every operation is scoped to the caller's own
// alerts.
package alerts

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/sentinela/internal/api/middleware"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Handler handles alert endpoints.
type Handler struct {
	alerts storage.AlertRepository
}

// NewHandler creates a new alerts handler.
func NewHandler(alerts storage.AlertRepository) *Handler {
	return &Handler{alerts: alerts}
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// notFoundOrInternal maps repository errors: ownership violations
// surface as not found, everything else as a 500.
func notFoundOrInternal(w http.ResponseWriter, op string, err error) {
	if strings.Contains(err.Error(), "not found") {
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "alert not found")
		return
	}
	log.Printf("%s: %v", op, err)
	jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// List returns the caller's alerts, newest first. Archived alerts are
// included only with ?include_archived=true.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	alerts, err := h.alerts.ListByUser(r.Context(), userID, includeArchived)
	if err != nil {
		log.Printf("list alerts for %s: %v", userID, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	jsonOK(w, alerts)
}

// MarkRead marks one of the caller's alerts as read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	if err := h.alerts.MarkRead(r.Context(), id, userID); err != nil {
		notFoundOrInternal(w, "mark alert read", err)
		return
	}
	jsonOK(w, map[string]string{"id": id, "status": "read"})
}

type snoozeRequest struct {
	Until time.Time `json:"until"`
}

// Snooze hides one of the caller's alerts until the given time.
func (h *Handler) Snooze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Until.IsZero() {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "body must be {\"until\": RFC3339 timestamp}")
		return
	}
	if !req.Until.After(time.Now()) {
		jsonError(w, http.StatusBadRequest, "VALIDATION_FAILED", "until must be in the future")
		return
	}

	if err := h.alerts.Snooze(r.Context(), id, userID, req.Until); err != nil {
		notFoundOrInternal(w, "snooze alert", err)
		return
	}
	jsonOK(w, map[string]string{"id": id, "status": "snoozed"})
}

// Archive archives one of the caller's alerts. Archived alerts no
// longer participate in deduplication.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	if err := h.alerts.Archive(r.Context(), id, userID); err != nil {
		notFoundOrInternal(w, "archive alert", err)
		return
	}
	jsonOK(w, map[string]string{"id": id, "status": "archived"})
}
