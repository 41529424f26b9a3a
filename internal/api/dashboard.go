// Package api exposes the dashboard bundles, logs, candidate enrichment
// and admin actions over HTTP.
package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/aggregator"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// DashboardService computes dashboards and log pages over the working set
type DashboardService interface {
	Dashboard(opts aggregator.Options) types.Dashboard
	Logs(f aggregator.Filter, page int) aggregator.LogPage
}

// DashboardHandler serves the dashboard and the filtered log listing
type DashboardHandler struct {
	svc      DashboardService
	rateMode types.RateMode
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler. rateMode is used when
// a request does not choose one.
func NewDashboardHandler(svc DashboardService, rateMode types.RateMode, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:      svc,
		rateMode: rateMode,
		validate: validator.New(),
		logger:   logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboard returns KPIs, leaderboard, trend, heatmap, attempts and insight
// GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Dashboard(opts))
}

// GetLogs returns one page of filtered logs, newest first
// GET /api/logs?page=N
func (h *DashboardHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := h.filter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
	}
	writeJSON(w, http.StatusOK, h.svc.Logs(filter, page))
}

// options reads dashboard options from the query. Unknown rate and trend
// modes degrade to their defaults.
func (h *DashboardHandler) options(q url.Values) (aggregator.Options, error) {
	filter, err := h.filter(q)
	if err != nil {
		return aggregator.Options{}, err
	}

	rateMode := h.rateMode
	if raw := q.Get("rateMode"); raw != "" {
		mode, ok := types.ParseRateMode(raw)
		if !ok {
			h.logger.Warn().Str("rate_mode", raw).Msg("unknown rate mode, using contact")
		}
		rateMode = mode
	}

	trendMode, ok := aggregator.ParseTrendMode(q.Get("trendMode"))
	if !ok {
		h.logger.Warn().Str("trend_mode", q.Get("trendMode")).Msg("unknown trend mode, using auto")
	}

	scope := q.Get("scope")
	if scope == "" {
		scope = q.Get("employee")
	}

	return aggregator.Options{
		Filter:        filter,
		RateMode:      rateMode,
		TrendMode:     trendMode,
		Scope:         scope,
		AnalysisRange: q.Get("analysisRange"),
		HeatmapUser:   q.Get("heatmapUser"),
	}, nil
}

func (h *DashboardHandler) filter(q url.Values) (aggregator.Filter, error) {
	f := aggregator.Filter{
		Employee: strings.TrimSpace(q.Get("employee")),
		Result:   strings.TrimSpace(q.Get("result")),
		Route:    strings.TrimSpace(q.Get("route")),
		Target:   strings.TrimSpace(q.Get("target")),
	}
	var err error
	if f.From, err = parseDay(q.Get("from")); err != nil {
		return f, fmt.Errorf("invalid from: %w", err)
	}
	if f.To, err = parseDay(q.Get("to")); err != nil {
		return f, fmt.Errorf("invalid to: %w", err)
	}
	if err := h.validate.Struct(f); err != nil {
		return f, fmt.Errorf("invalid filter: %w", err)
	}
	return f, nil
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", raw)
}
