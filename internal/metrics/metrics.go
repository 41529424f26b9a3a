package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Enrichment metrics
	DetailFetchesTotal  *prometheus.CounterVec
	DetailFetchDuration prometheus.Histogram
	EnqueuedTotal       *prometheus.CounterVec
	QueueDepth          *prometheus.GaugeVec

	// Aggregation metrics
	AggregationRunsTotal prometheus.Counter
	AggregationDuration  prometheus.Histogram

	// Upstream metrics
	UpstreamRequestsTotal *prometheus.CounterVec

	// WebSocket metrics
	WebSocketClients   prometheus.Gauge
	WebSocketMessages  prometheus.Counter
	WebSocketDropped   prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DetailFetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_detail_fetch_total",
			Help: "Candidate detail fetches by outcome",
		}, []string{"outcome"}),
		DetailFetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_detail_fetch_duration_seconds",
			Help:    "Candidate detail fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		EnqueuedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_enrichment_enqueued_total",
			Help: "Candidate ids accepted into an enrichment queue",
		}, []string{"queue"}),
		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "outreach_enrichment_queue_depth",
			Help: "Candidate ids waiting in an enrichment queue",
		}, []string{"queue"}),
		AggregationRunsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "outreach_aggregation_runs_total",
			Help: "Dashboard aggregation passes",
		}),
		AggregationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_aggregation_duration_seconds",
			Help:    "Dashboard aggregation pass latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		UpstreamRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_upstream_requests_total",
			Help: "Requests to the upstream dashboard API",
		}, []string{"op", "status"}),
		WebSocketClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_ws_clients",
			Help: "Connected websocket clients",
		}),
		WebSocketMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "outreach_ws_messages_total",
			Help: "Messages broadcast to websocket clients",
		}),
		WebSocketDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "outreach_ws_dropped_clients_total",
			Help: "Clients dropped because their send buffer was full",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outreach_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordDetailFetch records one detail fetch ("ok", "error", "cached")
func (m *Metrics) RecordDetailFetch(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DetailFetchesTotal.WithLabelValues(outcome).Inc()
	if outcome != "cached" {
		m.DetailFetchDuration.Observe(duration.Seconds())
	}
}

// RecordEnqueue records an accepted enqueue and the new queue depth
func (m *Metrics) RecordEnqueue(queue string, depth int) {
	if m == nil {
		return
	}
	m.EnqueuedTotal.WithLabelValues(queue).Inc()
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// SetQueueDepth updates the depth gauge of a queue
func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordAggregation records one aggregation pass
func (m *Metrics) RecordAggregation(duration time.Duration) {
	if m == nil {
		return
	}
	m.AggregationRunsTotal.Inc()
	m.AggregationDuration.Observe(duration.Seconds())
}

// RecordUpstream records one upstream request; status 0 means transport error
func (m *Metrics) RecordUpstream(op string, status int) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

// SetWebSocketClients updates the connected client gauge
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.WebSocketClients.Set(float64(n))
}

// RecordWebSocketMessage counts one broadcast
func (m *Metrics) RecordWebSocketMessage() {
	if m == nil {
		return
	}
	m.WebSocketMessages.Inc()
}

// RecordWebSocketDrop counts one client dropped for a full buffer
func (m *Metrics) RecordWebSocketDrop() {
	if m == nil {
		return
	}
	m.WebSocketDropped.Inc()
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
