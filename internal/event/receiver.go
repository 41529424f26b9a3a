// Package event receives call logs entered by callers and hands them to
// the aggregator as pending entries.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
	"github.com/dennisdiepolder/monti/outreach/internal/upstream"
)

// LogAdder stores a new log upstream and tracks it until listed
type LogAdder interface {
	AddLog(ctx context.Context, rec ingestion.Record) (types.CallLogEntry, error)
}

// logRequest is the subset of a submitted record that must be present
type logRequest struct {
	Datetime    string `validate:"required"`
	Employee    string `validate:"required"`
	Target      string `validate:"required_without=CandidateID"`
	CandidateID int64  `validate:"omitempty,gt=0"`
	Result      string `validate:"required"`
}

// Receiver handles call logs submitted from the dashboard
type Receiver struct {
	logs         LogAdder
	validate     *validator.Validate
	logger       zerolog.Logger
	logsReceived int64
	logsRejected int64
	lastReceived time.Time
	mu           sync.RWMutex
}

// NewReceiver creates a new log receiver
func NewReceiver(logs LogAdder, logger zerolog.Logger) *Receiver {
	return &Receiver{
		logs:     logs,
		validate: validator.New(),
		logger:   logger.With().Str("component", "log_receiver").Logger(),
	}
}

// HandleLog validates and stores one submitted log
func (r *Receiver) HandleLog(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rec ingestion.Record
	if err := json.NewDecoder(req.Body).Decode(&rec); err != nil {
		r.logger.Error().Err(err).Msg("failed to decode log")
		atomic.AddInt64(&r.logsRejected, 1)
		http.Error(w, "invalid log", http.StatusBadRequest)
		return
	}

	check := logRequest{
		Datetime:    rec.String("datetime", "called_at", "calledAt", "call_at"),
		Employee:    rec.String("employee", "caller_name", "caller", "user_name"),
		Target:      rec.String("target", "candidate_name", "candidateName", "company_name"),
		CandidateID: rec.PositiveInt("candidate_id", "candidateId", "candidateID"),
		Result:      rec.String("resultCode", "result", "result_code", "status", "outcome"),
	}
	if err := r.validate.Struct(check); err != nil {
		atomic.AddInt64(&r.logsRejected, 1)
		r.logger.Debug().Err(err).Msg("log rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	entry, err := r.logs.AddLog(req.Context(), rec)
	if err != nil {
		r.logger.Error().Err(err).Str("target", check.Target).Msg("failed to store log")
		status := http.StatusBadGateway
		var se *upstream.StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
			status = se.StatusCode
		}
		writeJSON(w, status, map[string]string{"error": "failed to store log"})
		return
	}

	count := atomic.AddInt64(&r.logsReceived, 1)
	r.mu.Lock()
	r.lastReceived = time.Now()
	r.mu.Unlock()

	// Log periodically
	if count%100 == 0 {
		r.logger.Info().Int64("total_received", count).Msg("logs received")
	}

	writeJSON(w, http.StatusCreated, entry)
}

// GetStats returns receiver statistics
func (r *Receiver) GetStats(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	lastReceived := r.lastReceived
	r.mu.RUnlock()

	stats := map[string]interface{}{
		"logs_received": atomic.LoadInt64(&r.logsReceived),
		"logs_rejected": atomic.LoadInt64(&r.logsRejected),
		"last_received": lastReceived,
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
