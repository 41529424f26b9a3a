package aggregator

import (
	"math"
	"strconv"
	"strings"

	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Rate-target keys, as used by the KPI target endpoint
const (
	TargetConnectionRate        = "teleapoConnectionRate"
	TargetSetupRate             = "teleapoSetupRate"
	TargetAttendanceRate        = "teleapoAttendanceRate"
	TargetAttendanceRateContact = "teleapoAttendanceRateContact"
)

// Levels returned by RateLevel
const (
	LevelNone = "none"
	LevelGood = "good"
	LevelWarn = "warn"
	LevelBad  = "bad"
)

var targetKeyVariants = map[string][]string{
	TargetConnectionRate:        {"teleapoConnectionRate", "teleapoConnectRateTarget", "teleapo_connect_rate_target"},
	TargetSetupRate:             {"teleapoSetupRate", "teleapoSetRateTarget", "teleapo_set_rate_target"},
	TargetAttendanceRate:        {"teleapoAttendanceRate", "teleapoShowRateTarget", "teleapo_show_rate_target"},
	TargetAttendanceRateContact: {"teleapoAttendanceRateContact", "teleapoShowRateTargetWithContact", "teleapo_show_rate_target_with_contact"},
}

// RateTargets maps a target key to its goal percentage
type RateTargets map[string]float64

// NormalizeRateTargets reads the goal percentages from a KPI target record.
// Missing, negative or unparseable values become 0, which disables coloring.
func NormalizeRateTargets(r ingestion.Record) RateTargets {
	out := make(RateTargets, len(targetKeyVariants))
	for key, variants := range targetKeyVariants {
		out[key] = 0
		for _, variant := range variants {
			raw := r.String(variant)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				continue
			}
			out[key] = v
			break
		}
	}
	return out
}

// percentOf returns num/den*100 clamped to [0, 100], or nil for den == 0
func percentOf(num, den int) *float64 {
	if den <= 0 {
		return nil
	}
	v := float64(num) / float64(den) * 100
	if v > 100 {
		v = 100
	}
	if v < 0 {
		v = 0
	}
	return &v
}

// ShowDenominator is scheduled in step mode and contacts in contact mode
func ShowDenominator(b types.Bucket, mode types.RateMode) int {
	if mode == types.RateModeStep {
		return b.Scheduled
	}
	return b.Contacts
}

// ComputeRates derives the three funnel rates of a bucket
func ComputeRates(b types.Bucket, mode types.RateMode) types.Rates {
	return types.Rates{
		ContactRate: percentOf(b.ContactsPlusScheduled, b.Dials),
		SetRate:     percentOf(b.Scheduled, b.Contacts),
		ShowRate:    percentOf(b.Attended, ShowDenominator(b, mode)),
	}
}

// NewKPI pairs a bucket with its rates
func NewKPI(b types.Bucket, mode types.RateMode) types.KPI {
	return types.KPI{Bucket: b, Rates: ComputeRates(b, mode)}
}

// RateLevel grades a rate against its goal percentage
func RateLevel(rate *float64, target float64) string {
	if rate == nil || math.IsNaN(*rate) || target <= 0 {
		return LevelNone
	}
	achieved := *rate / target * 100
	switch {
	case achieved >= 100:
		return LevelGood
	case achieved >= 80:
		return LevelWarn
	}
	return LevelBad
}

// ShowTargetKey picks the attendance goal matching the rate mode
func ShowTargetKey(mode types.RateMode) string {
	if mode == types.RateModeStep {
		return TargetAttendanceRate
	}
	return TargetAttendanceRateContact
}

// Levels grades the total KPI against targets, keyed by rate name
func Levels(k types.KPI, mode types.RateMode, targets RateTargets) map[string]string {
	if len(targets) == 0 {
		return nil
	}
	return map[string]string{
		"contactRate": RateLevel(k.ContactRate, targets[TargetConnectionRate]),
		"setRate":     RateLevel(k.SetRate, targets[TargetSetupRate]),
		"showRate":    RateLevel(k.ShowRate, targets[ShowTargetKey(mode)]),
	}
}
