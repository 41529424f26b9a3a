package attempts

import (
	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// SummaryIndex holds per-candidate call summaries keyed by id and name key
type SummaryIndex struct {
	ByCandidateID map[int64]types.CallSummary
	ByName        map[string]types.CallSummary
}

// Summaries rolls logs up per candidate id and per normalized name
func Summaries(logs []types.CallLogEntry, facts classify.FactSource) SummaryIndex {
	idx := SummaryIndex{
		ByCandidateID: make(map[int64]types.CallSummary),
		ByName:        make(map[string]types.CallSummary),
	}
	for _, entry := range logs {
		flags := classify.With(facts, entry)
		if entry.CandidateID > 0 {
			idx.ByCandidateID[entry.CandidateID] = update(idx.ByCandidateID[entry.CandidateID], entry, flags)
		}
		if key := identity.NameKey(entry.CandidateName); key != "" {
			idx.ByName[key] = update(idx.ByName[key], entry, flags)
		}
	}
	return idx
}

// Lookup returns the summary for a candidate, by id first then by name
func (s SummaryIndex) Lookup(candidateID int64, name string) (types.CallSummary, bool) {
	if candidateID > 0 {
		if sum, ok := s.ByCandidateID[candidateID]; ok {
			return sum, true
		}
	}
	sum, ok := s.ByName[identity.NameKey(name)]
	return sum, ok
}

func update(cur types.CallSummary, entry types.CallLogEntry, flags classify.Flags) types.CallSummary {
	if entry.IsPhone() {
		cur.CallCount++
	}
	if flags.Code == types.ResultSMSSent {
		cur.HasSMS = true
	}
	if flags.IsConnect {
		cur.HasConnected = true
		if !entry.Timestamp.Before(cur.LastConnectedAt) {
			cur.LastConnectedAt = entry.Timestamp
		}
	}
	return cur
}
