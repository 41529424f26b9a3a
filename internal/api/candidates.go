package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/enrichment"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// CandidateEnricher is the enrichment surface the candidate routes need
type CandidateEnricher interface {
	Fetch(ctx context.Context, id int64) (types.EnrichmentEntry, error)
	MissingInfoRows() []types.MissingInfoRow
}

// CallSummaries rolls up the logged calls of a candidate
type CallSummaries interface {
	CallSummary(candidateID int64, name string) (types.CallSummary, bool)
}

// CandidateHandler provides REST endpoints for candidate enrichment data
type CandidateHandler struct {
	enrich    CandidateEnricher
	summaries CallSummaries
	logger    zerolog.Logger
}

// NewCandidateHandler creates a new CandidateHandler
func NewCandidateHandler(enrich CandidateEnricher, summaries CallSummaries, logger zerolog.Logger) *CandidateHandler {
	return &CandidateHandler{
		enrich:    enrich,
		summaries: summaries,
		logger:    logger.With().Str("component", "candidate_handler").Logger(),
	}
}

// GetCalls returns the call count, connect and SMS state of a candidate.
// ?name= matches logs that were never linked to the id.
// GET /api/candidates/{id}/calls
func (h *CandidateHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "id must be a non-negative integer")
		return
	}

	sum, ok := h.summaries.CallSummary(id, r.URL.Query().Get("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "no calls logged")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetDetail returns the enriched detail of one candidate. Concurrent
// requests for the same id share the in-flight fetch.
// GET /api/candidates/{id}/detail
func (h *CandidateHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	entry, err := h.enrich.Fetch(r.Context(), id)
	if err != nil {
		if errors.Is(err, enrichment.ErrInvalidCandidateID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error().Err(err).Int64("candidate_id", id).Msg("failed to fetch candidate detail")
		writeError(w, upstreamStatus(err), "failed to retrieve candidate detail")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// GetMissingInfo lists candidates lacking an age or a phone, newest
// registration first
// GET /api/candidates/missing-info
func (h *CandidateHandler) GetMissingInfo(w http.ResponseWriter, r *http.Request) {
	rows := h.enrich.MissingInfoRows()
	if rows == nil {
		rows = []types.MissingInfoRow{}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].RegisteredAt != rows[j].RegisteredAt {
			return rows[i].RegisteredAt > rows[j].RegisteredAt
		}
		return rows[i].CandidateID < rows[j].CandidateID
	})

	writeJSON(w, http.StatusOK, rows)
}
