package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/outreach/internal/attempts"
	"github.com/dennisdiepolder/monti/outreach/internal/attribution"
	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/insight"
	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// 2025-03-03 is a Monday
func mon(h, m int) time.Time {
	return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC)
}

func logAt(id string, code types.ResultCode, ts time.Time) types.CallLogEntry {
	return ingestion.Finalize(types.CallLogEntry{
		ID:            id,
		CandidateID:   7,
		CandidateName: "山田 太郎",
		Employee:      "佐藤",
		Route:         types.RoutePhone,
		ResultCode:    code,
		Timestamp:     ts,
		Datetime:      ingestion.FormatDatetime(ts),
	})
}

func ratePtr(v float64) *float64 { return &v }

func TestAttemptNumbersAndContactRate(t *testing.T) {
	logs := attempts.Annotate([]types.CallLogEntry{
		logAt("b", types.ResultConnect, mon(10, 0)),
		logAt("a", types.ResultNoAnswer, mon(9, 10)),
	})
	assert.Equal(t, 2, logs[0].CallAttemptNumber)
	assert.Equal(t, 1, logs[1].CallAttemptNumber)

	dash := Compute(logs, nil, Options{})
	total := dash.KPI.Total
	assert.Equal(t, 2, total.Dials)
	assert.Equal(t, 1, total.Contacts)
	require.NotNil(t, total.ContactRate)
	assert.InDelta(t, 50, *total.ContactRate, 1e-9)
}

func TestFunnelCountsOnlyFirstOccurrence(t *testing.T) {
	logs := []types.CallLogEntry{
		logAt("1", types.ResultNoAnswer, mon(9, 0)),
		logAt("2", types.ResultCallback, mon(10, 0)),
		logAt("3", types.ResultConnect, mon(11, 0)),
		logAt("4", types.ResultSet, mon(12, 0)),
		logAt("5", types.ResultShow, mon(13, 0)),
	}

	idx := attribution.Build(logs, classify.NoFacts{})
	rec := idx[identity.StageKey(logs[0])]
	assert.Equal(t, "4", rec.ScheduledRef)
	assert.Equal(t, "5", rec.AttendedRef)

	k := NewAccounting(logs, nil, types.RateModeContact).KPI(logs)
	assert.Equal(t, 5, k.Dials)
	assert.Equal(t, 1, k.Scheduled)
	assert.Equal(t, 1, k.Attended)
}

func TestShowRateByMode(t *testing.T) {
	b := types.Bucket{Dials: 20, Contacts: 10, ContactsPlusScheduled: 10, Scheduled: 4, Attended: 2}

	step := ComputeRates(b, types.RateModeStep)
	contact := ComputeRates(b, types.RateModeContact)
	require.NotNil(t, step.ShowRate)
	require.NotNil(t, contact.ShowRate)
	assert.InDelta(t, 50, *step.ShowRate, 1e-9)
	assert.InDelta(t, 20, *contact.ShowRate, 1e-9)
}

func TestRatesStayInDomain(t *testing.T) {
	r := ComputeRates(types.Bucket{Dials: 1, ContactsPlusScheduled: 3}, types.RateModeContact)
	require.NotNil(t, r.ContactRate)
	assert.Equal(t, 100.0, *r.ContactRate)
	assert.Nil(t, r.SetRate)
	assert.Nil(t, r.ShowRate)
}

func TestRateLevel(t *testing.T) {
	tests := []struct {
		name   string
		rate   *float64
		target float64
		want   string
	}{
		{"no rate", nil, 30, LevelNone},
		{"no target", ratePtr(10), 0, LevelNone},
		{"achieved", ratePtr(30), 30, LevelGood},
		{"close", ratePtr(25), 30, LevelWarn},
		{"behind", ratePtr(10), 30, LevelBad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RateLevel(tt.rate, tt.target))
		})
	}
}

func TestNormalizeRateTargets(t *testing.T) {
	targets := NormalizeRateTargets(ingestion.Record{
		"teleapoConnectRateTarget": "30%",
		"teleapoSetupRate":         12.5,
		"teleapoAttendanceRate":    -1,
	})
	assert.Equal(t, 30.0, targets[TargetConnectionRate])
	assert.Equal(t, 12.5, targets[TargetSetupRate])
	assert.Equal(t, 0.0, targets[TargetAttendanceRate])
	assert.Equal(t, 0.0, targets[TargetAttendanceRateContact])
}

func TestSelectTrendMode(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		span time.Duration
		want types.TrendMode
	}{
		{12 * time.Hour, types.TrendHour},
		{3 * day, types.TrendWeekday},
		{20 * day, types.TrendWeek},
		{200 * day, types.TrendMonth},
		{800 * day, types.TrendYear},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectTrendMode(start, start.Add(tt.span)), "span %s", tt.span)
	}
}

func TestParseTrendMode(t *testing.T) {
	m, ok := ParseTrendMode("week")
	assert.True(t, ok)
	assert.Equal(t, types.TrendWeek, m)

	m, ok = ParseTrendMode("auto")
	assert.True(t, ok)
	assert.Empty(t, m)

	_, ok = ParseTrendMode("fortnight")
	assert.False(t, ok)
}

func TestWeekOfMonth(t *testing.T) {
	// March 2025 starts on a Saturday
	assert.Equal(t, 1, WeekOfMonth(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, WeekOfMonth(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, WeekOfMonth(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestTrend_MonthLabels(t *testing.T) {
	logs := []types.CallLogEntry{
		logAt("1", types.ResultConnect, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)),
		logAt("2", types.ResultNoAnswer, time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)),
		logAt("3", types.ResultNoAnswer, time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)),
		{Route: types.RoutePhone, ResultCode: types.ResultConnect, Datetime: "bad"},
	}

	tr := NewAccounting(logs, nil, types.RateModeContact).Trend(logs, "")
	assert.Equal(t, types.TrendMonth, tr.Mode)
	require.Len(t, tr.Points, 2)
	assert.Equal(t, "2025/01", tr.Points[0].Label)
	assert.Equal(t, "2025/03", tr.Points[1].Label)
	assert.Equal(t, 2, tr.Points[1].Dials)
}

func TestTrend_WeekdayOverride(t *testing.T) {
	logs := []types.CallLogEntry{logAt("1", types.ResultConnect, mon(10, 0))}
	tr := NewAccounting(logs, nil, types.RateModeContact).Trend(logs, types.TrendWeekday)
	require.Len(t, tr.Points, 1)
	assert.Equal(t, "月", tr.Points[0].Label)
}

func TestFilter(t *testing.T) {
	set := logAt("1", types.ResultSet, mon(10, 0))
	show := logAt("2", types.ResultShow, time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC))
	other := logAt("3", types.ResultReply, mon(11, 0))
	other.Route = types.RouteOther
	other.CandidateName = "Tanaka Hanako"

	logs := []types.CallLogEntry{set, show, other}
	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"show stage", Filter{Result: ResultFilterShow}, []string{"2"}},
		{"set stage", Filter{Result: ResultFilterSet}, []string{"1", "2"}},
		{"substring", Filter{Result: "返信"}, []string{"3"}},
		{"route", Filter{Route: "other"}, []string{"3"}},
		{"target", Filter{Target: "tanaka"}, []string{"3"}},
		{"date inclusive", Filter{From: mon(0, 0), To: mon(0, 0)}, []string{"1", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, e := range tt.f.Apply(logs, nil) {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSummaryScope(t *testing.T) {
	a := logAt("1", types.ResultConnect, mon(10, 0))
	b := logAt("2", types.ResultConnect, mon(11, 0))
	b.Employee = "鈴木"
	c := logAt("3", types.ResultSMSSent, mon(12, 0))
	c.Route = types.RouteOther

	logs := []types.CallLogEntry{a, b, c}
	assert.Len(t, SummaryScope(logs, ""), 3)
	assert.Len(t, SummaryScope(logs, "all"), 3)
	scoped := SummaryScope(logs, "佐藤")
	require.Len(t, scoped, 1)
	assert.Equal(t, "1", scoped[0].ID)
}

func TestAnalysisScope(t *testing.T) {
	last := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	logs := []types.CallLogEntry{
		logAt("old", types.ResultConnect, last.AddDate(0, 0, -20)),
		logAt("recent", types.ResultConnect, last.AddDate(0, 0, -3)),
		logAt("last", types.ResultConnect, last),
		{ID: "untimed", Route: types.RoutePhone},
	}

	out, scope := AnalysisScope(logs, "", RangeWeek)
	assert.Len(t, out, 2)
	assert.Equal(t, "全体", scope.ScopeLabel)
	assert.Equal(t, "2025/03/24 ～ 2025/03/31", scope.Label)

	out, scope = AnalysisScope(logs, "佐藤", RangeHalfYear)
	assert.Len(t, out, 3)
	assert.Equal(t, "佐藤さん", scope.ScopeLabel)
	assert.Equal(t, last.AddDate(0, 0, -20), scope.From)
}

func TestBuildHeatmap(t *testing.T) {
	sat := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	logs := []types.CallLogEntry{
		logAt("early", types.ResultConnect, mon(8, 0)),
		logAt("slot0", types.ResultNoAnswer, mon(10, 59)),
		logAt("slot4", types.ResultConnect, mon(18, 0)),
		logAt("late", types.ResultConnect, mon(19, 0)),
		logAt("weekend", types.ResultConnect, sat),
	}

	h := BuildHeatmap(logs, nil)
	require.Len(t, h.Cells, 5)
	first := h.Cells[0][0]
	assert.Equal(t, "月", first.Day)
	assert.Equal(t, "09-11", first.Slot)
	assert.Equal(t, 2, first.Dials)
	assert.Equal(t, 1, first.Connects)
	require.NotNil(t, first.Rate)
	assert.InDelta(t, 50, *first.Rate, 1e-9)
	assert.Equal(t, 1, h.Cells[4][0].Dials)
	assert.Nil(t, h.Cells[2][2].Rate)
}

func TestAttemptDistribution(t *testing.T) {
	logs := []types.CallLogEntry{
		logAt("1", types.ResultNoAnswer, mon(9, 0)),
		logAt("2", types.ResultNoAnswer, mon(10, 0)),
		logAt("3", types.ResultSet, mon(11, 0)),
	}
	d := AttemptDistribution(logs, nil)
	require.Len(t, d.Buckets, 3)
	assert.Equal(t, 3, d.Buckets[2].Attempt)
	assert.Equal(t, 1, d.Buckets[2].Connected)
	assert.Equal(t, 3.0, d.Average)
	assert.Equal(t, 3, d.SampleDials)
	assert.Equal(t, 1, d.SampleConnects)
}

func TestEmployees(t *testing.T) {
	a := logAt("1", types.ResultConnect, mon(9, 0))
	b := logAt("2", types.ResultConnect, mon(10, 0))
	b.Employee = ""
	c := logAt("3", types.ResultConnect, mon(11, 0))
	c.Employee = ""

	rows := NewAccounting(nil, nil, types.RateModeContact).Employees([]types.CallLogEntry{a, b, c})
	require.Len(t, rows, 2)
	assert.Equal(t, UnassignedEmployee, rows[0].Name)
	assert.Equal(t, 2, rows[0].Dials)
}

func TestCompute_NoLogs(t *testing.T) {
	dash := Compute(nil, nil, Options{RateMode: "bogus"})
	assert.Equal(t, types.RateModeContact, dash.RateMode)
	assert.Equal(t, insight.SourceNoPhoneLogs, dash.Insight.Source)
	require.NotNil(t, dash.Trend)
	assert.Empty(t, dash.Trend.Points)
	assert.Nil(t, dash.RateLevels)
	assert.Equal(t, "全体", dash.ScopeLabel)
}

func TestCompute_Levels(t *testing.T) {
	logs := []types.CallLogEntry{
		logAt("1", types.ResultNoAnswer, mon(9, 0)),
		logAt("2", types.ResultConnect, mon(10, 0)),
	}
	dash := Compute(logs, nil, Options{Targets: RateTargets{TargetConnectionRate: 40}})
	assert.Equal(t, LevelGood, dash.RateLevels["contactRate"])
	assert.Equal(t, LevelNone, dash.RateLevels["showRate"])
}

func heatmapDials(h types.Heatmap) int {
	n := 0
	for _, row := range h.Cells {
		for _, c := range row {
			n += c.Dials
		}
	}
	return n
}

func TestCompute_WeekendOnlyReportsLowSample(t *testing.T) {
	sat := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	logs := make([]types.CallLogEntry, 0, 12)
	for i := 0; i < 12; i++ {
		logs = append(logs, logAt(fmt.Sprintf("sat-%d", i), types.ResultConnect, sat))
	}

	dash := Compute(logs, nil, Options{})
	assert.Zero(t, heatmapDials(dash.Heatmap))
	require.NotNil(t, dash.Insight.Heatmap)
	assert.Equal(t, types.FindingLowSample, dash.Insight.Heatmap.Type)
	assert.Equal(t, insight.SourceHeatmapLowSample, dash.Insight.Source)
}

func TestCompute_UntimedLogsCountOnlyInTotals(t *testing.T) {
	m := ingestion.NewMapper(time.UTC)
	logs := []types.CallLogEntry{
		m.MapLog(ingestion.Record{"id": "1", "candidate_id": 7, "target": "山田 太郎", "employee": "佐藤", "datetime": "2025/03/03 10:00", "result": "set"}),
		m.MapLog(ingestion.Record{"id": "2", "candidate_id": 8, "target": "鈴木 花子", "employee": "佐藤", "datetime": "garbage", "result": "show"}),
		m.MapLog(ingestion.Record{"id": "3", "candidate_id": 9, "target": "田中 一郎", "employee": "佐藤", "datetime": "bad", "result": "connect"}),
	}
	require.False(t, logs[1].HasTimestamp())
	require.False(t, logs[2].HasTimestamp())

	dash := Compute(logs, nil, Options{})

	total := dash.KPI.Total
	assert.Equal(t, 3, total.Dials)
	assert.Equal(t, 3, total.Contacts)
	assert.Equal(t, 1, total.Scheduled)
	assert.Equal(t, 0, total.Attended)

	require.NotNil(t, dash.Trend)
	trendDials := 0
	for _, p := range dash.Trend.Points {
		trendDials += p.Dials
	}
	assert.Equal(t, 1, trendDials)
	assert.Equal(t, 1, heatmapDials(dash.Heatmap))
	assert.Equal(t, 1, dash.Attempts.SampleDials)
}
