package attempts

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2024, 12, 2, h, m, 0, 0, time.UTC)
}

func TestAnnotateChronological(t *testing.T) {
	logs := []types.CallLogEntry{
		{Ref: "b", CandidateID: 7, Route: types.RoutePhone, ResultCode: types.ResultConnect, Timestamp: at(10, 0)},
		{Ref: "a", CandidateID: 7, Route: types.RoutePhone, ResultCode: types.ResultNoAnswer, Timestamp: at(9, 10)},
		{Ref: "c", CandidateID: 8, Route: types.RoutePhone, ResultCode: types.ResultNoAnswer, Timestamp: at(9, 30)},
	}

	out := Annotate(logs)
	require.Len(t, out, 3)
	assert.Equal(t, 2, out[0].CallAttemptNumber)
	assert.Equal(t, 1, out[1].CallAttemptNumber)
	assert.Equal(t, 1, out[2].CallAttemptNumber)

	// input untouched
	assert.Zero(t, logs[0].CallAttemptNumber)
}

func TestAnnotateIdempotent(t *testing.T) {
	logs := []types.CallLogEntry{
		{Ref: "1", CandidateName: "山田 太郎", Route: types.RoutePhone, Timestamp: at(9, 0)},
		{Ref: "2", CandidateName: "山田太郎", Route: types.RoutePhone, Timestamp: at(9, 0)},
		{Ref: "3", CandidateName: "山田太郎", Route: types.RoutePhone, Timestamp: at(11, 0)},
		{Ref: "4", CandidateName: "山田太郎", Route: types.RouteOther, Timestamp: at(12, 0)},
	}

	once := Annotate(logs)
	twice := Annotate(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, []int{1, 2, 3, 0}, []int{
		once[0].CallAttemptNumber,
		once[1].CallAttemptNumber,
		once[2].CallAttemptNumber,
		once[3].CallAttemptNumber,
	})
}

func TestAnnotateClearsNonPhone(t *testing.T) {
	logs := []types.CallLogEntry{
		{Ref: "1", CandidateID: 1, Route: types.RouteOther, CallAttemptNumber: 4, Timestamp: at(9, 0)},
	}
	out := Annotate(logs)
	assert.Zero(t, out[0].CallAttemptNumber)
}

func TestSummaries(t *testing.T) {
	logs := []types.CallLogEntry{
		{CandidateID: 3, CandidateName: "佐藤", Route: types.RoutePhone, ResultCode: types.ResultNoAnswer, Timestamp: at(9, 0)},
		{CandidateID: 3, CandidateName: "佐藤", Route: types.RoutePhone, ResultCode: types.ResultConnect, Timestamp: at(10, 0)},
		{CandidateID: 3, CandidateName: "佐藤", Route: types.RouteOther, ResultCode: types.ResultSMSSent, Timestamp: at(11, 0)},
	}

	idx := Summaries(logs, classify.NoFacts{})
	sum, ok := idx.Lookup(3, "")
	require.True(t, ok)
	assert.Equal(t, 2, sum.CallCount)
	assert.True(t, sum.HasConnected)
	assert.True(t, sum.HasSMS)
	assert.Equal(t, at(10, 0), sum.LastConnectedAt)

	byName, ok := idx.Lookup(0, " 佐藤 ")
	require.True(t, ok)
	assert.Equal(t, sum, byName)
}
