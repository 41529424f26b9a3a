package aggregator

import (
	"github.com/dennisdiepolder/monti/outreach/internal/attribution"
	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Accounting counts logs into buckets. The attribution index is built
// once over the full filtered set, so every dimension slice counted
// through the same Accounting agrees on which log is a candidate's first
// set and first show.
type Accounting struct {
	index attribution.Index
	facts classify.FactSource
	mode  types.RateMode
}

// NewAccounting builds the attribution index over logs
func NewAccounting(logs []types.CallLogEntry, facts classify.FactSource, mode types.RateMode) *Accounting {
	if facts == nil {
		facts = classify.NoFacts{}
	}
	return &Accounting{
		index: attribution.Build(logs, facts),
		facts: facts,
		mode:  mode,
	}
}

// Mode returns the rate mode rates are computed with
func (a *Accounting) Mode() types.RateMode {
	return a.mode
}

// Flags classifies entry with the accounting's fact source
func (a *Accounting) Flags(entry types.CallLogEntry) classify.Flags {
	return classify.With(a.facts, entry)
}

// Add counts one log. Attempt-level counts always increase; scheduled and
// attended only for the attributed log of the entry's stage key.
func (a *Accounting) Add(b *types.Bucket, entry types.CallLogEntry) {
	flags := a.Flags(entry)
	b.Dials++
	if flags.IsConnect {
		b.Contacts++
	}
	if flags.IsConnectPlusSet {
		b.ContactsPlusScheduled++
	}
	if !flags.IsSet && !flags.IsShow {
		return
	}
	key := identity.StageKey(entry)
	if flags.IsSet && a.index.IsScheduled(key, entry) {
		b.Scheduled++
	}
	if flags.IsShow && a.index.IsAttended(key, entry) {
		b.Attended++
	}
}

// Bucket counts logs into a fresh bucket
func (a *Accounting) Bucket(logs []types.CallLogEntry) types.Bucket {
	var b types.Bucket
	for _, entry := range logs {
		a.Add(&b, entry)
	}
	return b
}

// KPI counts logs and derives their rates
func (a *Accounting) KPI(logs []types.CallLogEntry) types.KPI {
	return NewKPI(a.Bucket(logs), a.mode)
}

// Bundle splits logs by route and totals them
func (a *Accounting) Bundle(logs []types.CallLogEntry) types.KPIBundle {
	var tel, other, total types.Bucket
	for _, entry := range logs {
		if entry.Route == types.RouteOther {
			a.Add(&other, entry)
		} else {
			a.Add(&tel, entry)
		}
		a.Add(&total, entry)
	}
	return types.KPIBundle{
		Tel:   NewKPI(tel, a.mode),
		Other: NewKPI(other, a.mode),
		Total: NewKPI(total, a.mode),
	}
}
