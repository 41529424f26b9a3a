package types

import "time"

// Bucket holds funnel counts for one aggregation dimension value.
// Dials, Contacts and ContactsPlusScheduled count every attempt;
// Scheduled and Attended count only attributed first occurrences.
type Bucket struct {
	Dials                 int `json:"dials"`
	Contacts              int `json:"contacts"`
	ContactsPlusScheduled int `json:"contactsPlusScheduled"`
	Scheduled             int `json:"scheduled"`
	Attended              int `json:"attended"`
}

// Rates are percentages in [0, 100]; nil when the denominator is zero
type Rates struct {
	ContactRate *float64 `json:"contactRate"`
	SetRate     *float64 `json:"setRate"`
	ShowRate    *float64 `json:"showRate"`
}

// KPI is a bucket together with its derived rates
type KPI struct {
	Bucket
	Rates
}

// KPIBundle is the global KPI split by route
type KPIBundle struct {
	Tel   KPI `json:"tel"`
	Other KPI `json:"other"`
	Total KPI `json:"total"`
}

// EmployeeMetrics is one row of the caller leaderboard
type EmployeeMetrics struct {
	Name string `json:"name"`
	KPI
	Alerts []KPIAlert `json:"alerts,omitempty"`
}

// Severity represents alert severity levels
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// KPIAlert flags a caller rate that falls short of its goal
type KPIAlert struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// TrendMode is the time-bucket granularity of a trend series
type TrendMode string

const (
	TrendHour    TrendMode = "hour"
	TrendWeekday TrendMode = "weekday"
	TrendWeek    TrendMode = "week"
	TrendMonth   TrendMode = "month"
	TrendYear    TrendMode = "year"
)

// TrendPoint is one time bucket of a trend series
type TrendPoint struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Start *time.Time `json:"start,omitempty"`
	KPI
}

// Trend is an ordered series of time buckets
type Trend struct {
	Mode   TrendMode    `json:"mode"`
	Points []TrendPoint `json:"points"`
}

// HeatmapCell is one weekday x slot cell of the phone heatmap
type HeatmapCell struct {
	Day      string   `json:"day"`
	Slot     string   `json:"slot"`
	Dials    int      `json:"dials"`
	Connects int      `json:"connects"`
	Rate     *float64 `json:"rate"`
}

// Heatmap is the fixed 5x5 grid, Cells[slot][day]
type Heatmap struct {
	Days  []string        `json:"days"`
	Slots []string        `json:"slots"`
	Cells [][]HeatmapCell `json:"cells"`
}

// AttemptBucket aggregates phone logs by attempt number
type AttemptBucket struct {
	Attempt   int      `json:"attempt"`
	Dials     int      `json:"dials"`
	Connected int      `json:"connected"`
	Rate      *float64 `json:"rate"`
}

// AttemptDistribution is the attempt-vs-connect-rate chart data
type AttemptDistribution struct {
	Buckets        []AttemptBucket `json:"buckets"`
	Average        float64         `json:"average"`
	SampleDials    int             `json:"sampleDials"`
	SampleConnects int             `json:"sampleConnects"`
}

// HeatmapFindingType classifies the heatmap insight outcome
type HeatmapFindingType string

const (
	FindingLift      HeatmapFindingType = "lift"
	FindingVolume    HeatmapFindingType = "volume"
	FindingLowSample HeatmapFindingType = "lowSample"
)

// HeatmapFinding is the structured result of the heatmap heuristic
type HeatmapFinding struct {
	Type         HeatmapFindingType `json:"type"`
	ScopeLabel   string             `json:"scopeLabel"`
	Day          string             `json:"day,omitempty"`
	Slot         string             `json:"slot,omitempty"`
	Dials        int                `json:"dials"`
	Connects     int                `json:"connects"`
	Rate         float64            `json:"rate"`
	Smoothed     float64            `json:"smoothed"`
	Lift         float64            `json:"lift"`
	Score        float64            `json:"score"`
	BaselineRate float64            `json:"baselineRate"`
	TotalDials   int                `json:"totalDials"`
	MinSamples   int                `json:"minSamples"`
}

// AttemptFinding is the structured result of the attempt heuristic
type AttemptFinding struct {
	Attempt   int     `json:"attempt"`
	Reached   int     `json:"reached"`
	Connected int     `json:"connected"`
	Rate      float64 `json:"rate"`
	Smoothed  float64 `json:"smoothed"`
	Lift      float64 `json:"lift"`
	Score     float64 `json:"score"`
	Average   float64 `json:"average"`
	LowSignal bool    `json:"lowSignal"`
}

// Insight is the recommendation text plus the heuristics that produced it
type Insight struct {
	Text    string          `json:"text"`
	Source  string          `json:"source"`
	Heatmap *HeatmapFinding `json:"heatmap,omitempty"`
	Attempt *AttemptFinding `json:"attempt,omitempty"`
}

// AnalysisScope describes the log subset used by heatmap, attempts and insight
type AnalysisScope struct {
	Range      string    `json:"range"`
	ScopeLabel string    `json:"scopeLabel"`
	From       time.Time `json:"from,omitempty"`
	To         time.Time `json:"to,omitempty"`
	Label      string    `json:"label"`
	LogCount   int       `json:"logCount"`
}

// Dashboard is the complete output of one aggregation pass
type Dashboard struct {
	GeneratedAt   time.Time           `json:"generatedAt"`
	RateMode      RateMode            `json:"rateMode"`
	ScopeLabel    string              `json:"scopeLabel"`
	LogCount      int                 `json:"logCount"`
	KPI           KPIBundle           `json:"kpi"`
	RateLevels    map[string]string   `json:"rateLevels,omitempty"`
	Employees     []EmployeeMetrics   `json:"employees"`
	Trend         *Trend              `json:"trend,omitempty"`
	Heatmap       Heatmap             `json:"heatmap"`
	Attempts      AttemptDistribution `json:"attempts"`
	Insight       Insight             `json:"insight"`
	AnalysisScope AnalysisScope       `json:"analysisScope"`
}
