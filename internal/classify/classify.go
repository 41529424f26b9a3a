// Package classify derives funnel-stage flags from a normalized log.
package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Facts are the two externally known inputs to classification
type Facts struct {
	// AttendanceConfirmed is an independent confirmation that the candidate attended
	AttendanceConfirmed bool
	// InterviewDate is the known first interview date, if any
	InterviewDate *time.Time
}

// FactSource supplies Facts for a log, typically from the enrichment cache
type FactSource interface {
	Facts(entry types.CallLogEntry) Facts
}

// NoFacts is a FactSource that knows nothing
type NoFacts struct{}

// Facts implements FactSource
func (NoFacts) Facts(types.CallLogEntry) Facts { return Facts{} }

// Flags is the classification of one log
type Flags struct {
	Code                types.ResultCode
	IsConnect           bool
	IsConnectPlusSet    bool
	IsSet               bool
	IsShow              bool
	AttendanceConfirmed bool
	InterviewDate       *time.Time
	FlowLabels          []string
	DisplayLabel        string
}

// Classify is pure and deterministic given entry and facts
func Classify(entry types.CallLogEntry, facts Facts) Flags {
	code := entry.ResultCode
	f := Flags{
		Code:                code,
		AttendanceConfirmed: facts.AttendanceConfirmed,
		InterviewDate:       facts.InterviewDate,
	}

	switch code {
	case types.ResultConnect, types.ResultReply, types.ResultCallback:
		f.IsConnect = true
		f.IsConnectPlusSet = true
	case types.ResultSet, types.ResultShow:
		f.IsConnect = true
		f.IsConnectPlusSet = true
		f.IsSet = true
	}
	f.IsShow = code == types.ResultShow || (code == types.ResultSet && facts.AttendanceConfirmed)

	if f.IsSet {
		meeting := "面談"
		if facts.InterviewDate != nil && !facts.InterviewDate.IsZero() {
			meeting = fmt.Sprintf("面談(%d/%d)", int(facts.InterviewDate.Month()), facts.InterviewDate.Day())
		}
		f.FlowLabels = []string{"通電", meeting}
		if f.IsShow {
			f.FlowLabels = append(f.FlowLabels, "着座")
		}
		f.DisplayLabel = strings.Join(f.FlowLabels, "→")
		return f
	}

	if label := code.Label(); label != "" {
		f.DisplayLabel = label
	} else {
		f.DisplayLabel = entry.Result
	}
	return f
}

// With classifies entry using facts from src; a nil src knows nothing
func With(src FactSource, entry types.CallLogEntry) Flags {
	if src == nil {
		return Classify(entry, Facts{})
	}
	return Classify(entry, src.Facts(entry))
}
