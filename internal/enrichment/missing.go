package enrichment

import (
	"strings"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// MissingInfoRows lists cached candidates lacking an age or a phone.
// NeedsDetail is set while no detail fetch has been attempted.
func (s *Service) MissingInfoRows() []types.MissingInfoRow {
	now := s.now()
	var rows []types.MissingInfoRow
	for _, e := range s.cache.Entries() {
		age := CandidateAge(e.Candidate, now)
		phone := strings.TrimSpace(e.Phone)
		missingAge := age == nil
		missingPhone := phone == ""
		if !missingAge && !missingPhone {
			continue
		}
		rows = append(rows, types.MissingInfoRow{
			CandidateID:   e.ID,
			CandidateName: e.Name,
			RegisteredAt:  e.RegisteredAt,
			Age:           age,
			Phone:         phone,
			MissingAge:    missingAge,
			MissingPhone:  missingPhone,
			NeedsDetail:   !e.DetailFetched,
		})
	}
	return rows
}
