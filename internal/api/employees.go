package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/aggregator"
	"github.com/dennisdiepolder/monti/outreach/internal/alerts"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// TargetSource returns the loaded KPI goals
type TargetSource interface {
	Targets() aggregator.RateTargets
}

// EmployeeHandler serves the caller leaderboard with rate-target alerts
type EmployeeHandler struct {
	dashboards *DashboardHandler
	targets    TargetSource
	logger     zerolog.Logger
}

// NewEmployeeHandler creates a new EmployeeHandler sharing the dashboard
// handler's query parsing
func NewEmployeeHandler(dashboards *DashboardHandler, targets TargetSource, logger zerolog.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		dashboards: dashboards,
		targets:    targets,
		logger:     logger.With().Str("component", "employee_handler").Logger(),
	}
}

// ListEmployees returns every caller's KPIs with alerts
// GET /api/employees
func (h *EmployeeHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.leaderboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetEmployee returns one caller's KPIs and trend
// GET /api/employees/{name}
func (h *EmployeeHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	rows, dash, ok := h.leaderboard(w, r)
	if !ok {
		return
	}
	for _, row := range rows {
		if row.Name != name {
			continue
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"employee": row,
			"trend":    dash.Trend,
		})
		return
	}
	writeError(w, http.StatusNotFound, "employee not found")
}

func (h *EmployeeHandler) leaderboard(w http.ResponseWriter, r *http.Request) ([]types.EmployeeMetrics, types.Dashboard, bool) {
	opts, err := h.dashboards.options(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, types.Dashboard{}, false
	}
	if name := chi.URLParam(r, "name"); name != "" {
		opts.Scope = name
	}

	dash := h.dashboards.svc.Dashboard(opts)
	rows := dash.Employees
	if rows == nil {
		rows = []types.EmployeeMetrics{}
	}
	alerts.CheckEmployeeAlerts(rows, dash.RateMode, h.targets.Targets())

	flagged := 0
	for _, row := range rows {
		if len(row.Alerts) > 0 {
			flagged++
		}
	}
	h.logger.Debug().Int("employees", len(rows)).Int("flagged", flagged).Msg("leaderboard computed")
	return rows, dash, true
}
