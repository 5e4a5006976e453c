package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides the portal's Prometheus collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
	authFailures    prometheus.Counter
	listRefreshes   *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "UI-facing API requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "UI-facing API latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_errors_total",
			Help: "UI-facing API errors by domain error code.",
		}, []string{"path", "method", "code"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_calls_total",
			Help: "Outbound backend calls by endpoint and status.",
		}, []string{"endpoint", "status"}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_backend_auth_failures_total",
			Help: "Backend responses that reported an authentication failure.",
		}),
		listRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_review_refreshes_total",
			Help: "Pending list refreshes by list, trigger and outcome.",
		}, []string{"list", "source", "outcome"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Route guard outcomes by final state.",
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.requestCount,
			m.requestDuration,
			m.errorCount,
			m.backendCalls,
			m.authFailures,
			m.listRefreshes,
			m.guardDecisions,
		)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordBackendCall counts an outbound call; status 0 means no response was received.
func (m *Metrics) RecordBackendCall(endpoint string, status int) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// RecordAuthFailure counts a 401 seen by the client interceptor.
func (m *Metrics) RecordAuthFailure() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
}

// RecordRefresh counts a pending list refresh outcome (applied, dropped, failed).
func (m *Metrics) RecordRefresh(list, source, outcome string) {
	if m == nil {
		return
	}
	m.listRefreshes.WithLabelValues(list, source, outcome).Inc()
}

// RecordGuardDecision counts a final route guard state.
func (m *Metrics) RecordGuardDecision(state string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(state).Inc()
}
