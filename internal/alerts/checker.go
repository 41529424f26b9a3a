package alerts

import (
	"fmt"

	"github.com/dennisdiepolder/monti/outreach/internal/aggregator"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// MinDials is the dial count below which a caller's rates are not judged
const MinDials = 10

type rule struct {
	name   string
	label  string
	target string
	rate   func(types.KPI) *float64
}

func rules(mode types.RateMode) []rule {
	return []rule{
		{"contact_rate_low", "Contact rate", aggregator.TargetConnectionRate, func(k types.KPI) *float64 { return k.ContactRate }},
		{"set_rate_low", "Set rate", aggregator.TargetSetupRate, func(k types.KPI) *float64 { return k.SetRate }},
		{"show_rate_low", "Show rate", aggregator.ShowTargetKey(mode), func(k types.KPI) *float64 { return k.ShowRate }},
	}
}

// CheckEmployeeAlerts evaluates rate-target rules for a slice of callers,
// mutating each row's Alerts field in place. A rate under 80% of its goal
// is critical, one under 100% a warning.
func CheckEmployeeAlerts(employees []types.EmployeeMetrics, mode types.RateMode, targets aggregator.RateTargets) {
	checks := rules(mode)
	for i := range employees {
		employees[i].Alerts = nil
		if employees[i].Dials < MinDials {
			continue
		}

		for _, r := range checks {
			target := targets[r.target]
			rate := r.rate(employees[i].KPI)

			var severity types.Severity
			switch aggregator.RateLevel(rate, target) {
			case aggregator.LevelBad:
				severity = types.SeverityCritical
			case aggregator.LevelWarn:
				severity = types.SeverityWarning
			default:
				continue
			}
			employees[i].Alerts = append(employees[i].Alerts, types.KPIAlert{
				Rule:     r.name,
				Severity: severity,
				Message:  fmt.Sprintf("%s %s below target %s", r.label, formatPercent(*rate), formatPercent(target)),
			})
		}
	}
}

func formatPercent(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d%%", int(v))
	}
	return fmt.Sprintf("%.1f%%", v)
}
