// Package metrics provides Prometheus instrumentation for balance lookups,
// RPC attempts, client pools and the HTTP server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tally"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Lookup kind label values.
const (
	KindNative = "native"
	KindToken  = "token"
)

// Metrics holds the application's Prometheus collectors.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Lookups
	LookupsTotal    *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec

	// Sessions
	ClientsCreated *prometheus.CounterVec
	CloseErrors    *prometheus.CounterVec
	QueryDuration  *prometheus.HistogramVec

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LookupsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Balance lookups by chain, kind and final outcome.",
		}, []string{"chain", "kind", "outcome"}),

		AttemptsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_attempts_total",
			Help:      "Individual RPC attempts, including retries.",
		}, []string{"chain", "outcome"}),

		AttemptDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_attempt_duration_seconds",
			Help:      "Duration of individual RPC attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),

		ClientsCreated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_clients_created_total",
			Help:      "RPC clients created by session pools.",
		}, []string{"chain"}),

		CloseErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_close_errors_total",
			Help:      "Failures releasing pooled RPC clients.",
		}, []string{"chain"}),

		QueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of wallet queries across all requested chains.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"scope"}),

		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),

		HTTPDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RecordLookup records the final outcome of one balance lookup.
func (m *Metrics) RecordLookup(chain, kind string, failed bool) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(chain, kind, outcome(failed)).Inc()
}

// RecordAttempt records one RPC attempt with its duration.
func (m *Metrics) RecordAttempt(chain string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(chain, outcome(err != nil)).Inc()
	m.AttemptDuration.WithLabelValues(chain).Observe(duration.Seconds())
}

// RecordClientCreated records a pooled client construction.
func (m *Metrics) RecordClientCreated(chain string) {
	if m == nil {
		return
	}
	m.ClientsCreated.WithLabelValues(chain).Inc()
}

// RecordCloseError records a failure releasing a pooled client.
func (m *Metrics) RecordCloseError(chain string) {
	if m == nil {
		return
	}
	m.CloseErrors.WithLabelValues(chain).Inc()
}

// ObserveQuery records the duration of a query at the given scope
// ("chain", "wallet" or "wallets").
func (m *Metrics) ObserveQuery(scope string, duration time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func outcome(failed bool) string {
	if failed {
		return OutcomeError
	}
	return OutcomeSuccess
}
