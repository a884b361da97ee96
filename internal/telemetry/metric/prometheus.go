package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "garagebook"

// Registry holds all client metrics on a private prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	// Transport metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	CSRFRetries      prometheus.Counter
	TokenRefreshes   *prometheus.CounterVec
	SessionTeardowns prometheus.Counter

	// Cache metrics
	CacheEntries *prometheus.GaugeVec
	CacheReloads *prometheus.CounterVec
}

// NewRegistry creates a registry with every client metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "API requests by method and response status.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "API round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		CSRFRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "csrf_retries_total",
			Help:      "Requests resent after a token-expired response.",
		}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "csrf",
			Name:      "token_refreshes_total",
			Help:      "CSRF token fetches by result.",
		}, []string{"result"}),
		SessionTeardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "teardowns_total",
			Help:      "Sessions torn down after an unauthenticated response.",
		}),
		CacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held by each cache.",
		}, []string{"cache"}),
		CacheReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "reloads_total",
			Help:      "Cache reloads by cache and result.",
		}, []string{"cache", "result"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.CSRFRetries,
		r.TokenRefreshes,
		r.SessionTeardowns,
		r.CacheEntries,
		r.CacheReloads,
		collectors.NewGoCollector(),
	)
	return r
}

// Register adds extra collectors, such as a StateCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	if r == nil {
		return nil
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every metric to path in the node_exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// ObserveRequest records one HTTP round-trip. status 0 means no response.
func (r *Registry) ObserveRequest(method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.RequestsTotal.WithLabelValues(method, label).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncCSRFRetry counts a resend after a token-expired response.
func (r *Registry) IncCSRFRetry() {
	if r != nil {
		r.CSRFRetries.Inc()
	}
}

// ObserveTokenRefresh counts a CSRF token fetch.
func (r *Registry) ObserveTokenRefresh(err error) {
	if r != nil {
		r.TokenRefreshes.WithLabelValues(result(err)).Inc()
	}
}

// IncTeardown counts a session teardown.
func (r *Registry) IncTeardown() {
	if r != nil {
		r.SessionTeardowns.Inc()
	}
}

// ObserveReload records a cache reload and, on success, its new size.
func (r *Registry) ObserveReload(cache string, size int, err error) {
	if r == nil {
		return
	}
	r.CacheReloads.WithLabelValues(cache, result(err)).Inc()
	if err == nil {
		r.CacheEntries.WithLabelValues(cache).Set(float64(size))
	}
}

// SetCacheEntries sets a cache size outside of a reload.
func (r *Registry) SetCacheEntries(cache string, size int) {
	if r != nil {
		r.CacheEntries.WithLabelValues(cache).Set(float64(size))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
