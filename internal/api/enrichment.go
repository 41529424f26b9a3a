package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/enrichment"
)

// maxEnqueueIDs bounds one enqueue request
const maxEnqueueIDs = 1000

// EnrichmentQueues accepts ids into the throttled enrichment queues
type EnrichmentQueues interface {
	Enqueue(kind enrichment.Kind, ids ...int64) (int, error)
	Depths() map[enrichment.Kind]int
}

// EnrichmentHandler provides REST endpoints for the enrichment queues
type EnrichmentHandler struct {
	queues EnrichmentQueues
	logger zerolog.Logger
}

// NewEnrichmentHandler creates a new EnrichmentHandler
func NewEnrichmentHandler(queues EnrichmentQueues, logger zerolog.Logger) *EnrichmentHandler {
	return &EnrichmentHandler{
		queues: queues,
		logger: logger.With().Str("component", "enrichment_handler").Logger(),
	}
}

// Enqueue queues candidate ids for one kind of enrichment. Ids already
// satisfied, queued or in flight are skipped.
// POST /api/enrichment/{kind}
func (h *EnrichmentHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	kind, err := enrichment.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) > maxEnqueueIDs {
		writeError(w, http.StatusRequestEntityTooLarge, "too many ids")
		return
	}

	added, err := h.queues.Enqueue(kind, req.IDs...)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Debug().
		Str("queue", string(kind)).
		Int("requested", len(req.IDs)).
		Int("queued", added).
		Msg("enrichment requested")

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"queue":     kind,
		"requested": len(req.IDs),
		"queued":    added,
		"skipped":   len(req.IDs) - added,
	})
}

// GetStatus returns the backlog of every queue
// GET /api/enrichment
func (h *EnrichmentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queues.Depths())
}
