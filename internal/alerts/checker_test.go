package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/outreach/internal/aggregator"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

func row(name string, b types.Bucket, mode types.RateMode) types.EmployeeMetrics {
	return types.EmployeeMetrics{Name: name, KPI: aggregator.NewKPI(b, mode)}
}

func TestCheckEmployeeAlerts(t *testing.T) {
	targets := aggregator.RateTargets{
		aggregator.TargetConnectionRate:        40,
		aggregator.TargetSetupRate:             50,
		aggregator.TargetAttendanceRateContact: 10,
	}
	employees := []types.EmployeeMetrics{
		// contact 20% (bad), set 50% (good), show 10% (good)
		row("佐藤", types.Bucket{Dials: 50, Contacts: 10, ContactsPlusScheduled: 10, Scheduled: 5, Attended: 1}, types.RateModeContact),
		// contact 35% (warn)
		row("鈴木", types.Bucket{Dials: 20, Contacts: 7, ContactsPlusScheduled: 7, Scheduled: 4, Attended: 1}, types.RateModeContact),
		// too few dials to judge
		row("高橋", types.Bucket{Dials: 3, Contacts: 0}, types.RateModeContact),
	}

	CheckEmployeeAlerts(employees, types.RateModeContact, targets)

	require.Len(t, employees[0].Alerts, 1)
	assert.Equal(t, "contact_rate_low", employees[0].Alerts[0].Rule)
	assert.Equal(t, types.SeverityCritical, employees[0].Alerts[0].Severity)
	assert.Equal(t, "Contact rate 20% below target 40%", employees[0].Alerts[0].Message)

	require.Len(t, employees[1].Alerts, 1)
	assert.Equal(t, types.SeverityWarning, employees[1].Alerts[0].Severity)

	assert.Empty(t, employees[2].Alerts)
}

func TestCheckEmployeeAlerts_StepModeUsesStepTarget(t *testing.T) {
	targets := aggregator.RateTargets{
		aggregator.TargetAttendanceRate:        80,
		aggregator.TargetAttendanceRateContact: 5,
	}
	employees := []types.EmployeeMetrics{
		// step show rate 2/4 = 50% vs 80 target
		row("佐藤", types.Bucket{Dials: 30, Contacts: 10, ContactsPlusScheduled: 10, Scheduled: 4, Attended: 2}, types.RateModeStep),
	}

	CheckEmployeeAlerts(employees, types.RateModeStep, targets)

	require.Len(t, employees[0].Alerts, 1)
	assert.Equal(t, "show_rate_low", employees[0].Alerts[0].Rule)
	assert.Equal(t, types.SeverityCritical, employees[0].Alerts[0].Severity)
}

func TestCheckEmployeeAlerts_ClearsPrevious(t *testing.T) {
	employees := []types.EmployeeMetrics{
		row("佐藤", types.Bucket{Dials: 30, Contacts: 1, ContactsPlusScheduled: 1}, types.RateModeContact),
	}
	employees[0].Alerts = []types.KPIAlert{{Rule: "stale"}}

	CheckEmployeeAlerts(employees, types.RateModeContact, nil)

	assert.Empty(t, employees[0].Alerts)
}
