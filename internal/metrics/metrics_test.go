package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDetailFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDetailFetch("ok", 10*time.Millisecond)
	m.RecordDetailFetch("ok", 20*time.Millisecond)
	m.RecordDetailFetch("error", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.DetailFetchesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DetailFetchesTotal.WithLabelValues("error")))
}

func TestRecordEnqueue(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEnqueue("attendance", 3)
	m.SetQueueDepth("attendance", 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EnqueuedTotal.WithLabelValues("attendance")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueueDepth.WithLabelValues("attendance")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordAggregation(time.Second)
	m.RecordUpstream("logs", 200)
	m.SetWebSocketClients(2)
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordAggregation(5 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "outreach_aggregation_runs_total 1"))
}
