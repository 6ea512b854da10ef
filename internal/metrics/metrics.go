// Package metrics exposes Prometheus counters for the bill tracker.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billtracker/internal/bills"
)

const namespace = "billtracker"

// Backup kinds.
const (
	BackupExport = "export"
	BackupShare  = "share"
	BackupImport = "import"
)

// Quick-add outcomes.
const (
	QuickAddAdded    = "added"
	QuickAddNewType  = "new_type"
	QuickAddDeclined = "declined"
	QuickAddInvalid  = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	storeChanges *prometheus.CounterVec
	quickAdds    *prometheus.CounterVec
	backups      *prometheus.CounterVec
	rateLimited  prometheus.Counter
	suspicious   prometheus.Counter
}

var _ bills.Notifier = (*Metrics)(nil)

// New builds a private registry with process and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		storeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_changes_total",
			Help:      "Committed bill store mutations by operation.",
		}, []string{"op"}),
		quickAdds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quick_add_total",
			Help:      "Quick-add attempts by outcome.",
		}, []string{"outcome"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_operations_total",
			Help:      "Backup exports, shares and imports by result.",
		}, []string{"kind", "result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the request detector.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.storeChanges, m.quickAdds,
		m.backups, m.rateLimited, m.suspicious)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// NotifyChanged counts a committed store mutation.
func (m *Metrics) NotifyChanged(_ context.Context, c bills.Change) error {
	m.storeChanges.WithLabelValues(c.Op).Inc()
	return nil
}

func (m *Metrics) QuickAdd(outcome string) {
	m.quickAdds.WithLabelValues(outcome).Inc()
}

// Backup records one backup operation; a nil err counts as success.
func (m *Metrics) Backup(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.backups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) Suspicious() { m.suspicious.Inc() }

// RegisterWeekCache exports week cache hit and miss counters read from
// stats on every scrape.
func (m *Metrics) RegisterWeekCache(stats func() (hits, misses uint64)) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "week_cache_hits_total",
			Help:      "Week overview cache hits.",
		}, func() float64 {
			h, _ := stats()
			return float64(h)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "week_cache_misses_total",
			Help:      "Week overview cache misses.",
		}, func() float64 {
			_, miss := stats()
			return float64(miss)
		}),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. Wrap the ServeMux
// directly so the matched route pattern is visible after dispatch.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, r.Method, rec.status, time.Since(start))
	})
}
