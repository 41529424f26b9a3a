package identity

import (
	"strconv"
	"strings"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// StageKey returns the deduplication identity of a log. In priority order:
// candidate id, normalized name, phone (E.164 via PhoneKey), email, server
// log id, and finally a composite of route, name, employee, datetime and
// result code.
func StageKey(entry types.CallLogEntry) string {
	if entry.CandidateID > 0 {
		return "id:" + strconv.FormatInt(entry.CandidateID, 10)
	}
	if key := NameKey(entry.CandidateName); key != "" {
		return "name:" + key
	}
	if tel := PhoneKey(entry.Phone, DefaultRegion); tel != "" {
		return "tel:" + tel
	}
	if email := EmailKey(entry.Email); email != "" {
		return "email:" + email
	}
	if id := strings.TrimSpace(entry.ID); id != "" {
		return "log:" + id
	}
	return "fallback:" + strings.Join([]string{
		string(entry.Route),
		NameKey(entry.CandidateName),
		strings.TrimSpace(entry.Employee),
		strings.TrimSpace(entry.Datetime),
		string(entry.ResultCode),
	}, "|")
}
