package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"glycoimpute/internal/impute"
)

// HealthHandler serves liveness checks.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// Healthz handles GET /api/healthz.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	analytes := impute.Analytes()
	names := make([]string, len(analytes))
	for i, a := range analytes {
		names[i] = a.String()
	}

	render.JSON(w, r, map[string]interface{}{
		"status":            "ok",
		"uptime":            time.Since(h.startedAt).String(),
		"reference_version": impute.ReferenceVersion,
		"analytes":          names,
	})
}
