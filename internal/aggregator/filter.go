package aggregator

import (
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Result filter values with stage semantics
const (
	ResultFilterShow = "着座"
	ResultFilterSet  = "設定"
)

// Filter selects the logs every dashboard view is computed over.
// From and To are inclusive calendar days; zero means unbounded.
type Filter struct {
	Employee string    `json:"employee,omitempty"`
	Result   string    `json:"result,omitempty"`
	Route    string    `json:"route,omitempty" validate:"omitempty,oneof=tel other"`
	Target   string    `json:"target,omitempty"`
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
}

// Match reports whether entry passes the filter. Logs without a timestamp
// are not excluded by the date bounds.
func (f Filter) Match(entry types.CallLogEntry, facts classify.FactSource) bool {
	if entry.HasTimestamp() {
		ts := entry.Timestamp
		if !f.From.IsZero() && ts.Before(startOfDay(f.From, ts.Location())) {
			return false
		}
		if !f.To.IsZero() && !ts.Before(startOfDay(f.To, ts.Location()).AddDate(0, 0, 1)) {
			return false
		}
	}
	if f.Employee != "" && entry.Employee != f.Employee {
		return false
	}
	if f.Result != "" {
		flags := classify.With(facts, entry)
		switch f.Result {
		case ResultFilterShow:
			if !flags.IsShow {
				return false
			}
		case ResultFilterSet:
			if !flags.IsSet {
				return false
			}
		default:
			text := flags.DisplayLabel + entry.Result + string(entry.ResultCode)
			if !strings.Contains(text, f.Result) {
				return false
			}
		}
	}
	switch types.Route(f.Route) {
	case types.RoutePhone, types.RouteOther:
		if entry.Route != types.Route(f.Route) {
			return false
		}
	}
	if f.Target != "" && !strings.Contains(strings.ToLower(entry.CandidateName), strings.ToLower(f.Target)) {
		return false
	}
	return true
}

// Apply returns the matching logs in input order
func (f Filter) Apply(logs []types.CallLogEntry, facts classify.FactSource) []types.CallLogEntry {
	out := make([]types.CallLogEntry, 0, len(logs))
	for _, entry := range logs {
		if f.Match(entry, facts) {
			out = append(out, entry)
		}
	}
	return out
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SummaryScope narrows logs to one employee's phone logs; an empty name
// or "all" keeps the company-wide set
func SummaryScope(logs []types.CallLogEntry, employee string) []types.CallLogEntry {
	if employee == "" || employee == "all" {
		return logs
	}
	out := make([]types.CallLogEntry, 0)
	for _, entry := range logs {
		if entry.Employee == employee && entry.IsPhone() {
			out = append(out, entry)
		}
	}
	return out
}

// Analysis range presets
const (
	RangeWeek     = "1w"
	RangeMonth    = "1m"
	RangeHalfYear = "6m"
	RangeAll      = "all"
)

var rangeDays = map[string]int{
	RangeWeek:     7,
	RangeMonth:    30,
	RangeHalfYear: 182,
}

// ScopeLabel is 全体 for the whole team, otherwise "<name>さん"
func ScopeLabel(employee string) string {
	if employee == "" || employee == "all" {
		return "全体"
	}
	return employee + "さん"
}

// AnalysisScope selects the logs the heatmap, attempt chart and insight
// use: the optional employee first, then the range preset counted back
// from the latest log and clamped to the earliest. Untimed logs drop out.
func AnalysisScope(logs []types.CallLogEntry, employee, preset string) ([]types.CallLogEntry, types.AnalysisScope) {
	if preset == "" {
		preset = RangeAll
	}
	scope := types.AnalysisScope{Range: preset, ScopeLabel: ScopeLabel(employee)}

	scoped := logs
	if employee != "" && employee != "all" {
		scoped = make([]types.CallLogEntry, 0)
		for _, entry := range logs {
			if entry.Employee == employee {
				scoped = append(scoped, entry)
			}
		}
	}

	first, last, ok := DateRange(scoped)
	if !ok {
		return []types.CallLogEntry{}, scope
	}
	from := first
	if n, known := rangeDays[preset]; known {
		from = last.AddDate(0, 0, -n)
		if from.Before(first) {
			from = first
		}
	}

	out := make([]types.CallLogEntry, 0, len(scoped))
	for _, entry := range scoped {
		if !entry.HasTimestamp() {
			continue
		}
		if entry.Timestamp.Before(from) || entry.Timestamp.After(last) {
			continue
		}
		out = append(out, entry)
	}

	scope.From = from
	scope.To = last
	scope.Label = from.Format("2006/01/02") + " ～ " + last.Format("2006/01/02")
	scope.LogCount = len(out)
	return out, scope
}
