package ingestion

import (
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
	"github.com/google/uuid"
)

// Mapper turns raw upstream records into canonical structs
type Mapper struct {
	loc *time.Location
	now func() time.Time
}

// NewMapper creates a Mapper reading offset-less timestamps in loc
func NewMapper(loc *time.Location) *Mapper {
	if loc == nil {
		loc = time.Local
	}
	return &Mapper{
		loc: loc,
		now: time.Now,
	}
}

// Location returns the zone offset-less timestamps are read in
func (m *Mapper) Location() *time.Location {
	return m.loc
}

// MapLog maps one raw log record. It never fails: unparseable timestamps
// leave Timestamp zero and keep the raw text in Datetime.
func (m *Mapper) MapLog(r Record) types.CallLogEntry {
	rawResult := r.String("result", "result_code", "status", "outcome")
	code := NormalizeResultCode(r.String("resultCode"))
	if code == "" {
		code = NormalizeResultCode(rawResult)
	}

	entry := types.CallLogEntry{
		ID:                   r.String("id", "log_id", "logId", "logID"),
		CandidateID:          r.PositiveInt("candidate_id", "candidateId", "candidateID"),
		CandidateName:        r.String("target", "candidate_name", "candidateName", "company_name"),
		Phone:                r.String("candidate_phone", "candidatePhone", "phone", "tel"),
		Email:                r.String("candidate_email", "candidateEmail", "email"),
		Employee:             r.String("employee", "caller_name", "caller", "user_name"),
		CallerUserID:         r.PositiveInt("caller_user_id", "callerUserId"),
		Route:                NormalizeRoute(r.String("route", "route_type", "channel")),
		ResultCode:           code,
		ResultRaw:            rawResult,
		Memo:                 r.String("memo", "note"),
		ContactPreferredTime: NormalizeContactPreferredTime(r.String("contactPreferredTime", "contact_preferred_time", "contactTime", "contact_time")),
		CallAttemptNumber:    int(r.PositiveInt("call_no", "callNo", "call_number")),
	}

	rawDatetime := r.String("datetime", "called_at", "calledAt", "call_at")
	if ts, ok := ParseTimestamp(rawDatetime, m.loc); ok {
		entry.Timestamp = ts
		entry.Datetime = FormatDatetime(ts)
	} else {
		entry.Datetime = rawDatetime
	}

	return Finalize(entry)
}

// Finalize fills the derived fields of an entry: display result and Ref.
// It is safe to call repeatedly.
func Finalize(entry types.CallLogEntry) types.CallLogEntry {
	if entry.Route != types.RouteOther {
		entry.Route = types.RoutePhone
	}
	if label := entry.ResultCode.Label(); label != "" {
		entry.Result = label
	} else if entry.ResultRaw != "" {
		entry.Result = entry.ResultRaw
	} else {
		entry.Result = string(entry.ResultCode)
	}
	if entry.ID != "" {
		entry.Ref = entry.ID
	} else if entry.Ref == "" {
		entry.Ref = "local:" + uuid.NewString()
	}
	return entry
}

// MapCandidate maps a bulk-listing or detail record
func (m *Mapper) MapCandidate(r Record) types.Candidate {
	c := types.Candidate{
		ID:                   r.PositiveInt("candidateId", "candidate_id", "id", "candidateID"),
		Name:                 r.String("candidateName", "candidate_name", "name"),
		Phone:                r.String("phone", "phone_number", "phoneNumber", "tel", "mobile", "candidate_phone"),
		Email:                r.String("email", "candidate_email", "mail", "email_address"),
		Birthday:             r.String("birthday", "birth_date", "birthDate", "birthdate"),
		AgeText:              r.String("ageText", "age_value", "age", "age_years", "ageYears"),
		ContactPreferredTime: NormalizeContactPreferredTime(r.String("contactPreferredTime", "contact_preferred_time", "contactTime", "contact_time", "preferredContactTime", "preferred_contact_time")),
		CSStatus:             r.String("csStatus", "cs_status"),
		Nationality:          r.String("nationality", "nationality_text", "nationality_code"),
		JapaneseLevel:        r.String("japaneseLevel", "japanese_level", "jlpt_level", "jlptLevel"),
		RegisteredAt:         r.String("registeredAt", "createdAt", "created_at", "registered_at"),
	}

	if age := r.PositiveInt("age", "age_years", "ageYears"); age > 0 {
		n := int(age)
		c.Age = &n
	}
	if computed := AgeFromBirthday(c.Birthday, m.now().In(m.loc)); computed != nil {
		c.Age = computed
	}

	if v, ok := r.Value("attendanceConfirmed", "first_interview_attended", "attendance_confirmed"); ok {
		c.AttendanceConfirmed = NormalizeAttendance(v)
	}

	if raw := r.String("firstInterviewDate", "first_interview_date", "firstInterviewAt", "first_interview_at"); raw != "" {
		if ts, ok := ParseTimestamp(raw, m.loc); ok {
			c.FirstInterviewDate = &ts
		}
	}

	c.ValidApplication = validApplicationFlag(r)
	return c
}

// MapDetail maps a detail response, which may wrap the record under
// candidate, item or data
func (m *Mapper) MapDetail(r Record) types.Candidate {
	for _, key := range []string{"candidate", "item", "data"} {
		if inner, ok := r[key].(map[string]any); ok {
			return m.MapCandidate(Record(inner))
		}
	}
	return m.MapCandidate(r)
}

func validApplicationFlag(r Record) *bool {
	yes := []string{"有効", "有効応募"}
	no := []string{"無効", "無効応募"}
	if v, ok := r.Value("valid_application", "is_effective_application", "isEffective", "is_effective", "isValidApplication", "active_flag", "valid"); ok {
		return ParseFlag(v, yes, no)
	}
	for _, key := range []string{"validApplication", "validApplicationComputed", "valid_application_computed"} {
		if b, ok := r[key].(bool); ok {
			return &b
		}
	}
	return nil
}
