package insight

import (
	"math"
	"sort"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// HeatmapInsight ranks heatmap cells. It reports a lift finding when the
// best-scoring cell beats the baseline by HeatmapLiftPoints, a volume
// finding for the busiest qualifying cell otherwise, and a low-sample
// finding when no cell reaches the sample floor, including a grid that
// received no dial at all. It returns nil only for a heatmap without cells.
func HeatmapInsight(h types.Heatmap, scopeLabel string, th Thresholds) *types.HeatmapFinding {
	if len(h.Days) == 0 || len(h.Slots) == 0 {
		return nil
	}

	var cells []types.HeatmapCell
	totalDials, totalConnects := 0, 0
	for d := range h.Days {
		for s := range h.Slots {
			c := h.Cells[s][d]
			cells = append(cells, c)
			totalDials += c.Dials
			totalConnects += c.Connects
		}
	}

	baseline := percent(totalConnects, totalDials)
	minSamples := th.MinSamples(totalDials)
	base := types.HeatmapFinding{
		ScopeLabel:   scopeLabel,
		BaselineRate: baseline,
		TotalDials:   totalDials,
		MinSamples:   minSamples,
	}

	var ranked []types.HeatmapFinding
	for _, c := range cells {
		if c.Dials == 0 || c.Dials < minSamples {
			continue
		}
		f := base
		f.Day = c.Day
		f.Slot = c.Slot
		f.Dials = c.Dials
		f.Connects = c.Connects
		f.Rate = percent(c.Connects, c.Dials)
		f.Smoothed = smooth(c.Connects, c.Dials, baseline, th.HeatmapPriorWeight)
		f.Lift = f.Rate - baseline
		f.Score = (f.Smoothed - baseline) * math.Sqrt(float64(c.Dials))
		ranked = append(ranked, f)
	}

	if len(ranked) == 0 || totalDials < minSamples {
		base.Type = types.FindingLowSample
		return &base
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Dials > ranked[j].Dials
	})

	best := ranked[0]
	if best.Lift >= th.HeatmapLiftPoints {
		best.Type = types.FindingLift
		return &best
	}

	byVolume := make([]types.HeatmapFinding, len(ranked))
	copy(byVolume, ranked)
	sort.SliceStable(byVolume, func(i, j int) bool {
		return byVolume[i].Dials > byVolume[j].Dials
	})
	top := byVolume[0]
	top.Type = types.FindingVolume
	return &top
}
