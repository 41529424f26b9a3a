package ingestion

import (
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// IsSameLog reports whether a locally created entry and a server entry
// describe the same attempt
func IsSameLog(a, b types.CallLogEntry) bool {
	if a.ID != "" && b.ID != "" && a.ID == b.ID {
		return true
	}
	if a.Datetime == "" || b.Datetime == "" {
		return false
	}
	if a.Employee != "" && b.Employee != "" && a.Employee != b.Employee {
		return false
	}
	if a.Datetime != b.Datetime {
		return false
	}
	if a.CandidateID > 0 && b.CandidateID > 0 && a.CandidateID == b.CandidateID {
		return true
	}
	aKey := identity.NameKey(a.CandidateName)
	bKey := identity.NameKey(b.CandidateName)
	return aKey != "" && aKey == bKey
}

// MergePending appends pending entries the server has not returned yet.
// It returns the merged set and the entries still pending.
func MergePending(server, pending []types.CallLogEntry) (merged, stillPending []types.CallLogEntry) {
	merged = make([]types.CallLogEntry, 0, len(server)+len(pending))
	merged = append(merged, server...)
	for _, p := range pending {
		found := false
		for _, s := range server {
			if IsSameLog(p, s) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, p)
			stillPending = append(stillPending, p)
		}
	}
	return merged, stillPending
}
