package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/aggregator"
)

// Reloader refetches the working set from upstream
type Reloader interface {
	Reload(ctx context.Context, full bool) error
	Status() aggregator.Status
}

// AdminHandler handles reloads and working-set status
type AdminHandler struct {
	agg    Reloader
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(agg Reloader, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		agg:    agg,
		logger: logger.With().Str("component", "admin_handler").Logger(),
	}
}

// RequireManagerOrAdmin lets managers, supervisors and admins through
func RequireManagerOrAdmin(next http.Handler) http.Handler {
	return RequireRole("admin", "manager", "supervisor")(next)
}

// Reload refetches logs, candidates, rules and targets. ?full=true also
// drops the enrichment cache.
// POST /api/reload
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))

	if err := h.agg.Reload(r.Context(), full); err != nil {
		h.logger.Error().Err(err).Bool("full", full).Msg("reload via API failed")
		writeError(w, upstreamStatus(err), "reload failed")
		return
	}

	status := h.agg.Status()
	h.logger.Info().
		Bool("full", full).
		Int("logs", status.Logs).
		Int("candidates", status.Candidates).
		Msg("working set reloaded via API")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "working set reloaded",
		"full":    full,
		"status":  status,
	})
}

// GetStatus returns the size and age of the working set
// GET /api/status
func (h *AdminHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agg.Status())
}
