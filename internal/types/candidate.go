package types

import "time"

// Candidate is the best-known profile of one outreach target.
// Bulk listings fill a subset of the fields; detail fetches fill the rest.
type Candidate struct {
	ID                   int64      `json:"candidateId"`
	Name                 string     `json:"candidateName"`
	Phone                string     `json:"phone,omitempty"`
	Email                string     `json:"email,omitempty"`
	Birthday             string     `json:"birthday,omitempty"`
	Age                  *int       `json:"age,omitempty"`
	AgeText              string     `json:"ageText,omitempty"`
	ContactPreferredTime string     `json:"contactPreferredTime,omitempty"`
	AttendanceConfirmed  *bool      `json:"attendanceConfirmed,omitempty"`
	FirstInterviewDate   *time.Time `json:"firstInterviewDate,omitempty"`
	CSStatus             string     `json:"csStatus,omitempty"`
	Nationality          string     `json:"nationality,omitempty"`
	JapaneseLevel        string     `json:"japaneseLevel,omitempty"`
	RegisteredAt         string     `json:"registeredAt,omitempty"`
	ValidApplication     *bool      `json:"validApplication,omitempty"`
}

// EnrichmentEntry is the cached enrichment state for one candidate id
type EnrichmentEntry struct {
	Candidate

	// DetailFetched is set once a detail fetch completed, successfully or not
	DetailFetched bool `json:"detailFetched"`
	// ContactTimeFetched stops refetching a contact time that is absent upstream
	ContactTimeFetched bool `json:"contactPreferredTimeFetched"`
}

// HasContactTime reports whether a non-placeholder contact time is known
func (e *EnrichmentEntry) HasContactTime() bool {
	return e != nil && e.ContactPreferredTime != ""
}

// CallSummary is the per-candidate roll-up of its logs
type CallSummary struct {
	CallCount       int       `json:"callCount"`
	HasConnected    bool      `json:"hasConnected"`
	HasSMS          bool      `json:"hasSms"`
	LastConnectedAt time.Time `json:"lastConnectedAt,omitempty"`
}

// MissingInfoRow flags a candidate whose profile lacks age or phone
type MissingInfoRow struct {
	CandidateID   int64  `json:"candidateId"`
	CandidateName string `json:"candidateName"`
	RegisteredAt  string `json:"registeredAt,omitempty"`
	Age           *int   `json:"age,omitempty"`
	Phone         string `json:"phone,omitempty"`
	MissingAge    bool   `json:"missingAge"`
	MissingPhone  bool   `json:"missingPhone"`
	NeedsDetail   bool   `json:"needsDetail"`
}
