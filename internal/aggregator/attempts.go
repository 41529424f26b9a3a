package aggregator

import (
	"sort"

	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// AttemptDistribution groups phone logs by attempt number. A positive
// CallAttemptNumber on the log wins; otherwise a per-stage-key running
// counter assigns one in timestamp order.
func AttemptDistribution(logs []types.CallLogEntry, facts classify.FactSource) types.AttemptDistribution {
	phone := make([]types.CallLogEntry, 0, len(logs))
	for _, entry := range logs {
		if entry.IsPhone() {
			phone = append(phone, entry)
		}
	}
	sort.SliceStable(phone, func(i, j int) bool {
		return phone[i].Timestamp.Before(phone[j].Timestamp)
	})

	counters := make(map[string]int)
	buckets := make(map[int]*types.AttemptBucket)
	connectedAttempts, connectedCount := 0, 0

	for _, entry := range phone {
		key := identity.StageKey(entry)
		current := counters[key]
		attempt := entry.CallAttemptNumber
		if attempt <= 0 {
			attempt = current + 1
		}
		if attempt > current {
			counters[key] = attempt
		}

		b, ok := buckets[attempt]
		if !ok {
			b = &types.AttemptBucket{Attempt: attempt}
			buckets[attempt] = b
		}
		b.Dials++
		if classify.With(facts, entry).IsConnectPlusSet {
			b.Connected++
			connectedAttempts += attempt
			connectedCount++
		}
	}

	out := types.AttemptDistribution{
		Buckets:        make([]types.AttemptBucket, 0, len(buckets)),
		SampleDials:    len(phone),
		SampleConnects: connectedCount,
	}
	for _, b := range buckets {
		b.Rate = percentOf(b.Connected, b.Dials)
		out.Buckets = append(out.Buckets, *b)
	}
	sort.Slice(out.Buckets, func(i, j int) bool {
		return out.Buckets[i].Attempt < out.Buckets[j].Attempt
	})
	if connectedCount > 0 {
		out.Average = float64(connectedAttempts) / float64(connectedCount)
	}
	return out
}
