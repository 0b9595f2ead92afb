// Package jobs exposes the HTTP trigger endpoints for evaluation passes.
package jobs

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/good-yellow-bee/sentinela/internal/engine"
)

// Runner is the subset of the engine the trigger endpoints drive.
type Runner interface {
	RunBusiness(ctx context.Context) (*engine.Summary, error)
	RunSecurity(ctx context.Context) (*engine.Summary, error)
}

// Handler handles job trigger requests.
type Handler struct {
	runner Runner
}

// NewHandler creates a new jobs handler.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// TriggerBusiness runs one business evaluation pass. The request body
// is ignored.
func (h *Handler) TriggerBusiness(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.runner.RunBusiness)
}

// TriggerSecurity runs one security evaluation pass.
func (h *Handler) TriggerSecurity(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.runner.RunSecurity)
}

// Trigger responses are flat {"message"} / {"error"} objects, matching
// what scheduled-function callers expect.
func (h *Handler) trigger(w http.ResponseWriter, r *http.Request, run func(context.Context) (*engine.Summary, error)) {
	summary, err := run(r.Context())
	if err != nil {
		log.Printf("job trigger failed: %v", err)
		writeFlat(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeFlat(w, http.StatusOK, map[string]string{"message": summary.String()})
}

func writeFlat(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
