// Package attempts numbers repeated phone attempts per candidate.
package attempts

import (
	"sort"

	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Annotate returns a copy of logs where every phone log carries its
// chronological attempt number per stage key and every other log carries
// none. Equal timestamps keep input order; untimed logs sort first.
// Annotating an annotated slice yields the same numbers.
func Annotate(logs []types.CallLogEntry) []types.CallLogEntry {
	out := make([]types.CallLogEntry, len(logs))
	copy(out, logs)

	phone := make([]int, 0, len(out))
	for i := range out {
		if out[i].IsPhone() {
			phone = append(phone, i)
		} else {
			out[i].CallAttemptNumber = 0
		}
	}

	sort.SliceStable(phone, func(a, b int) bool {
		return out[phone[a]].Timestamp.Before(out[phone[b]].Timestamp)
	})

	counters := make(map[string]int)
	for _, i := range phone {
		key := identity.StageKey(out[i])
		counters[key]++
		out[i].CallAttemptNumber = counters[key]
	}
	return out
}
