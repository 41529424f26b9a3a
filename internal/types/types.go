package types

import "time"

// ResultCode is the canonical outcome of one outreach attempt
type ResultCode string

const (
	ResultConnect  ResultCode = "connect"
	ResultReply    ResultCode = "reply"
	ResultSet      ResultCode = "set"
	ResultShow     ResultCode = "show"
	ResultCallback ResultCode = "callback"
	ResultNoAnswer ResultCode = "no_answer"
	ResultSMSSent  ResultCode = "sms_sent"
)

// AllResultCodes lists the closed set of known codes in display order
var AllResultCodes = []ResultCode{
	ResultConnect,
	ResultReply,
	ResultNoAnswer,
	ResultSet,
	ResultShow,
	ResultCallback,
	ResultSMSSent,
}

// ResultLabels maps each code to its dashboard label
var ResultLabels = map[ResultCode]string{
	ResultConnect:  "通電",
	ResultReply:    "返信",
	ResultSet:      "設定",
	ResultShow:     "着座",
	ResultCallback: "コールバック",
	ResultNoAnswer: "不在",
	ResultSMSSent:  "SMS送信",
}

// Label returns the dashboard label, or "" for codes outside the closed set
func (c ResultCode) Label() string {
	return ResultLabels[c]
}

// Route is the channel an attempt went through
type Route string

const (
	RoutePhone Route = "tel"
	RouteOther Route = "other"
)

// RateMode selects the attendance-rate denominator
type RateMode string

const (
	// RateModeContact divides attended by contacts
	RateModeContact RateMode = "contact"
	// RateModeStep divides attended by scheduled
	RateModeStep RateMode = "step"
)

// ParseRateMode returns the mode and whether the input was recognised.
// Unknown input falls back to contact mode.
func ParseRateMode(s string) (RateMode, bool) {
	switch RateMode(s) {
	case RateModeStep:
		return RateModeStep, true
	case RateModeContact:
		return RateModeContact, true
	case "":
		return RateModeContact, true
	}
	return RateModeContact, false
}

// CallLogEntry is one normalized outreach attempt or contact event
type CallLogEntry struct {
	// ID is the server-assigned id; empty for entries not yet persisted.
	// Ref is ID when present, otherwise a local reference set at ingestion.
	ID  string `json:"id,omitempty"`
	Ref string `json:"ref"`

	CandidateID   int64      `json:"candidateId,omitempty"`
	CandidateName string     `json:"target"`
	Phone         string     `json:"tel,omitempty"`
	Email         string     `json:"email,omitempty"`
	Datetime      string     `json:"datetime"`
	Timestamp     time.Time  `json:"-"`
	Employee      string     `json:"employee"`
	CallerUserID  int64      `json:"callerUserId,omitempty"`
	Route         Route      `json:"route"`
	ResultCode    ResultCode `json:"resultCode"`
	ResultRaw     string     `json:"resultRaw,omitempty"`
	Result        string     `json:"result"`
	Memo          string     `json:"memo,omitempty"`

	ContactPreferredTime string `json:"contactPreferredTime,omitempty"`

	// CallAttemptNumber is 0 until the attempt annotator runs; phone route only
	CallAttemptNumber int `json:"callAttempt,omitempty"`
}

// HasTimestamp reports whether the entry carries a parseable timestamp
func (e CallLogEntry) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}

// IsPhone reports whether the entry went through the phone route
func (e CallLogEntry) IsPhone() bool {
	return e.Route == RoutePhone
}
