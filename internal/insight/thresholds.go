// Package insight ranks heatmap cells and attempt numbers by smoothed lift
// over the baseline connect rate and phrases one recommendation.
package insight

import "math"

// Thresholds are the product-tuned constants of both heuristics
type Thresholds struct {
	HeatmapPriorWeight float64
	AttemptPriorWeight float64
	HeatmapLiftPoints  float64
	AttemptLiftPoints  float64
	MinSampleFloor     int
	MinSampleShare     float64
}

// DefaultThresholds returns the values the dashboard ships with
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeatmapPriorWeight: 6,
		AttemptPriorWeight: 4,
		HeatmapLiftPoints:  6,
		AttemptLiftPoints:  3,
		MinSampleFloor:     5,
		MinSampleShare:     0.05,
	}
}

// MinSamples is max(floor, ceil(total * share))
func (t Thresholds) MinSamples(total int) int {
	n := int(math.Ceil(float64(total) * t.MinSampleShare))
	if n < t.MinSampleFloor {
		return t.MinSampleFloor
	}
	return n
}

// smooth shrinks hits/n toward baseline (a percentage) with the given prior weight
func smooth(hits, n int, baseline, prior float64) float64 {
	return (float64(hits) + baseline/100*prior) / (float64(n) + prior) * 100
}

func percent(hits, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(hits) / float64(n) * 100
}
