package aggregator

import (
	"sort"
	"strings"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// UnassignedEmployee labels phone logs without a caller name
const UnassignedEmployee = "未設定"

// Employees builds the caller leaderboard over phone logs, busiest first
func (a *Accounting) Employees(logs []types.CallLogEntry) []types.EmployeeMetrics {
	buckets := make(map[string]*types.Bucket)
	for _, entry := range logs {
		if !entry.IsPhone() {
			continue
		}
		name := strings.TrimSpace(entry.Employee)
		if name == "" {
			name = UnassignedEmployee
		}
		b, ok := buckets[name]
		if !ok {
			b = &types.Bucket{}
			buckets[name] = b
		}
		a.Add(b, entry)
	}

	out := make([]types.EmployeeMetrics, 0, len(buckets))
	for name, b := range buckets {
		out = append(out, types.EmployeeMetrics{Name: name, KPI: NewKPI(*b, a.mode)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dials != out[j].Dials {
			return out[i].Dials > out[j].Dials
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// EmployeeNames lists distinct non-empty caller names, sorted
func EmployeeNames(logs []types.CallLogEntry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, entry := range logs {
		name := strings.TrimSpace(entry.Employee)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
