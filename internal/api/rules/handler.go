// Package rules exposes read and toggle endpoints for monitoring rules.
package rules

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Handler handles rule endpoints.
type Handler struct {
	rules storage.RuleRepository
}

// NewHandler creates a new rules handler.
func NewHandler(rules storage.RuleRepository) *Handler {
	return &Handler{rules: rules}
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

// List returns every rule definition.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		log.Printf("list rules: %v", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	jsonOK(w, rules)
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetEnabled toggles one rule. Admin only (enforced by the router).
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "body must be {\"enabled\": true|false}")
		return
	}

	if err := h.rules.SetEnabled(r.Context(), id, *req.Enabled); err != nil {
		if strings.Contains(err.Error(), "not found") {
			jsonError(w, http.StatusNotFound, "NOT_FOUND", "rule not found")
			return
		}
		log.Printf("set rule %s enabled=%v: %v", id, *req.Enabled, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	jsonOK(w, map[string]any{"id": id, "enabled": *req.Enabled})
}
