// Package attribution assigns each funnel stage of a candidate to the
// chronologically first log that reached it.
package attribution

import (
	"sort"

	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Record holds the refs of the first scheduled and first attended log of a key
type Record struct {
	ScheduledRef string `json:"scheduledLogId,omitempty"`
	AttendedRef  string `json:"attendedLogId,omitempty"`
}

// Index maps stage keys to their attribution record
type Index map[string]Record

// Build scans logs in timestamp order. Untimed logs are skipped, and ties
// are broken by Ref so the result does not depend on input order.
func Build(logs []types.CallLogEntry, facts classify.FactSource) Index {
	ordered := make([]types.CallLogEntry, 0, len(logs))
	for _, entry := range logs {
		if entry.HasTimestamp() {
			ordered = append(ordered, entry)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Ref < ordered[j].Ref
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	idx := make(Index)
	for _, entry := range ordered {
		flags := classify.With(facts, entry)
		if !flags.IsSet && !flags.IsShow {
			continue
		}
		key := identity.StageKey(entry)
		rec := idx[key]
		if flags.IsSet && rec.ScheduledRef == "" {
			rec.ScheduledRef = entry.Ref
		}
		if flags.IsShow && rec.AttendedRef == "" {
			rec.AttendedRef = entry.Ref
		}
		idx[key] = rec
	}
	return idx
}

// IsScheduled reports whether entry is the attributed scheduled log of its key
func (idx Index) IsScheduled(key string, entry types.CallLogEntry) bool {
	rec, ok := idx[key]
	return ok && rec.ScheduledRef != "" && rec.ScheduledRef == entry.Ref
}

// IsAttended reports whether entry is the attributed attended log of its key
func (idx Index) IsAttended(key string, entry types.CallLogEntry) bool {
	rec, ok := idx[key]
	return ok && rec.AttendedRef != "" && rec.AttendedRef == entry.Ref
}
