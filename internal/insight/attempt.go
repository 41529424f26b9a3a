package insight

import (
	"math"
	"sort"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// AttemptInsight ranks attempt numbers by smoothed lift of the
// contacted rate. It returns nil when no bucket reaches the sample floor.
func AttemptInsight(dist types.AttemptDistribution, th Thresholds) *types.AttemptFinding {
	if len(dist.Buckets) == 0 {
		return nil
	}

	totalDials, totalConnected := 0, 0
	for _, b := range dist.Buckets {
		totalDials += b.Dials
		totalConnected += b.Connected
	}
	baseline := percent(totalConnected, totalDials)
	minSamples := th.MinSamples(totalDials)

	var ranked []types.AttemptFinding
	for _, b := range dist.Buckets {
		if b.Rate == nil || b.Dials < minSamples {
			continue
		}
		smoothed := smooth(b.Connected, b.Dials, baseline, th.AttemptPriorWeight)
		lift := smoothed - baseline
		ranked = append(ranked, types.AttemptFinding{
			Attempt:   b.Attempt,
			Reached:   b.Dials,
			Connected: b.Connected,
			Rate:      *b.Rate,
			Smoothed:  smoothed,
			Lift:      lift,
			Score:     lift * math.Sqrt(float64(b.Dials)),
			Average:   dist.Average,
		})
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Reached > ranked[j].Reached
	})

	best := ranked[0]
	best.LowSignal = best.Lift < th.AttemptLiftPoints
	return &best
}
