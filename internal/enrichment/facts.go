package enrichment

import (
	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Facts implements classify.FactSource over the cache. Attendance is
// looked up by id, then on the entry, then by name.
func (s *Service) Facts(entry types.CallLogEntry) classify.Facts {
	var f classify.Facts
	c := s.cache

	cached, haveEntry := types.EnrichmentEntry{}, false
	if entry.CandidateID > 0 {
		cached, haveEntry = c.Get(entry.CandidateID)
	}

	switch confirmed, ok := c.Attendance(entry.CandidateID); {
	case entry.CandidateID > 0 && ok:
		f.AttendanceConfirmed = confirmed
	case haveEntry && cached.AttendanceConfirmed != nil:
		f.AttendanceConfirmed = *cached.AttendanceConfirmed
	default:
		if confirmed, ok := c.AttendanceByName(entry.CandidateName); ok {
			f.AttendanceConfirmed = confirmed
		}
	}

	if haveEntry && cached.FirstInterviewDate != nil {
		d := *cached.FirstInterviewDate
		f.InterviewDate = &d
	}
	return f
}

var _ classify.FactSource = (*Service)(nil)
