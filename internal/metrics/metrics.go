package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported on /metrics. Each instance owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ImportedDeals    *prometheus.CounterVec
	ImportFailures   *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
	ImageProxyResult *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ImportedDeals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_import_upserts_total",
				Help: "Deals upserted by the importer",
			},
			[]string{"store"},
		),
		ImportFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_import_failures_total",
				Help: "Listings the importer failed to upsert",
			},
			[]string{"store"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		ImageProxyResult: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_proxy_requests_total",
				Help: "Image relay outcomes",
			},
			[]string{"outcome"},
		),
	}

	m.Registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.ImportedDeals,
		m.ImportFailures,
		m.RateLimited,
		m.ImageProxyResult,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveImport(store string, upserted, failed int) {
	if m == nil {
		return
	}
	m.ImportedDeals.WithLabelValues(store).Add(float64(upserted))
	m.ImportFailures.WithLabelValues(store).Add(float64(failed))
}

func (m *Metrics) ObserveRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(limiter).Inc()
}

func (m *Metrics) ObserveImageProxy(outcome string) {
	if m == nil {
		return
	}
	m.ImageProxyResult.WithLabelValues(outcome).Inc()
}
