// Package aggregator computes funnel KPIs, trend, heatmap, attempt
// distribution and insight over normalized call logs, and runs the
// service loop that keeps the current dashboard fresh.
package aggregator

import (
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/insight"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Options are the user-selectable parameters of one dashboard pass
type Options struct {
	Filter        Filter
	RateMode      types.RateMode
	TrendMode     types.TrendMode
	Scope         string
	AnalysisRange string
	HeatmapUser   string
	Targets       RateTargets
	Thresholds    insight.Thresholds
	GeneratedAt   time.Time
}

// Compute builds a dashboard from scratch. It is pure and total: malformed
// logs only drop out of the views that need the missing data.
func Compute(logs []types.CallLogEntry, facts classify.FactSource, opts Options) types.Dashboard {
	if facts == nil {
		facts = classify.NoFacts{}
	}
	mode := opts.RateMode
	if mode != types.RateModeStep {
		mode = types.RateModeContact
	}
	th := opts.Thresholds
	if th == (insight.Thresholds{}) {
		th = insight.DefaultThresholds()
	}
	generated := opts.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	filtered := opts.Filter.Apply(logs, facts)
	acc := NewAccounting(filtered, facts, mode)

	summary := SummaryScope(filtered, opts.Scope)
	bundle := acc.Bundle(summary)
	trend := acc.Trend(summary, opts.TrendMode)

	analysis, scope := AnalysisScope(filtered, opts.HeatmapUser, opts.AnalysisRange)
	heatmap := BuildHeatmap(analysis, facts)
	attempts := AttemptDistribution(analysis, facts)

	phone := 0
	for _, entry := range analysis {
		if entry.IsPhone() {
			phone++
		}
	}

	return types.Dashboard{
		GeneratedAt: generated,
		RateMode:    mode,
		ScopeLabel:  ScopeLabel(opts.Scope),
		LogCount:    len(filtered),
		KPI:         bundle,
		RateLevels:  Levels(bundle.Total, mode, opts.Targets),
		Employees:   acc.Employees(filtered),
		Trend:       &trend,
		Heatmap:     heatmap,
		Attempts:    attempts,
		Insight: insight.Compose(insight.Input{
			PhoneLogs:  phone,
			Heatmap:    heatmap,
			Attempts:   attempts,
			ScopeLabel: scope.ScopeLabel,
		}, th),
		AnalysisScope: scope,
	}
}
