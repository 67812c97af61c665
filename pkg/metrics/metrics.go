// Package metrics records query, cache, mutation and HTTP counters with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query paths
const (
	PathCache = "cache"
	PathIndex = "index"
	PathScan  = "scan"
)

// Recorder owns a registry and the collectors registered on it. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// QueriesTotal counts reads by collection and the path that answered them.
	QueriesTotal *prometheus.CounterVec
	// QueryDuration is the latency of engine operations.
	QueryDuration *prometheus.HistogramVec
	// CacheEvents counts result cache hits and misses.
	CacheEvents *prometheus.CounterVec
	// MutationsTotal counts writes by operation and status.
	MutationsTotal *prometheus.CounterVec
	// RequestTotal counts HTTP requests by method, path and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg, or on a fresh registry when reg is nil
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docdb_queries_total",
				Help: "Total number of reads by query path",
			},
			[]string{"collection", "path"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docdb_operation_duration_seconds",
				Help:    "Engine operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "operation"},
		),
		CacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docdb_cache_events_total",
				Help: "Result cache hits and misses",
			},
			[]string{"collection", "event"},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docdb_mutations_total",
				Help: "Total number of writes by operation and status",
			},
			[]string{"collection", "operation", "status"},
		),
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docdb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docdb_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry the collectors live on
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records which path answered a read
func (r *Recorder) ObserveQuery(collection, path string) {
	if r == nil {
		return
	}
	r.QueriesTotal.WithLabelValues(collection, path).Inc()
}

// ObserveCache records a cache hit or miss
func (r *Recorder) ObserveCache(collection string, hit bool) {
	if r == nil {
		return
	}
	event := "miss"
	if hit {
		event = "hit"
	}
	r.CacheEvents.WithLabelValues(collection, event).Inc()
}

// ObserveMutation records a write and its outcome
func (r *Recorder) ObserveMutation(collection, operation string, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.MutationsTotal.WithLabelValues(collection, operation, status).Inc()
}

// ObserveDuration records how long an engine operation took
func (r *Recorder) ObserveDuration(collection, operation string, start time.Time) {
	if r == nil {
		return
	}
	r.QueryDuration.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}
