// Package metrics exposes Prometheus instrumentation for the server,
// the ingestion pipeline and background jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	UploadsTotal    *prometheus.CounterVec
	UploadDuration  prometheus.Histogram
	RecordsImported prometheus.Counter
	RecordsSkipped  prometheus.Counter

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Job metrics
	ReconcileRuns      *prometheus.CounterVec
	ReconcileCorrected prometheus.Counter
	Tenants            prometheus.Gauge
}

// New creates the metrics on a private registry, alongside the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesboard_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salesboard_http_request_duration_seconds",
				Help:    "Duration of HTTP request processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		UploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesboard_uploads_total",
				Help: "Total number of upload attempts",
			},
			[]string{"status"},
		),

		UploadDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "salesboard_upload_duration_seconds",
				Help:    "Duration of end-to-end uploads",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		RecordsImported: f.NewCounter(
			prometheus.CounterOpts{
				Name: "salesboard_records_imported_total",
				Help: "Total number of sale records persisted by uploads and seeding",
			},
		),

		RecordsSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "salesboard_records_skipped_total",
				Help: "Total number of sale records skipped as duplicates",
			},
		),

		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesboard_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),

		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesboard_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		ReconcileRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesboard_reconcile_runs_total",
				Help: "Total number of record count reconciliation runs",
			},
			[]string{"status"},
		),

		ReconcileCorrected: f.NewCounter(
			prometheus.CounterOpts{
				Name: "salesboard_reconcile_corrected_total",
				Help: "Total number of tenant record counts corrected by reconciliation",
			},
		),

		Tenants: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "salesboard_tenants",
				Help: "Number of registered tenants at the last reconciliation",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records a request metric
func (m *Metrics) RecordRequest(method, route string, status int, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration)
}

// RecordUpload records a finished upload
func (m *Metrics) RecordUpload(imported, skipped int, duration float64) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues("ok").Inc()
	m.UploadDuration.Observe(duration)
	m.RecordsImported.Add(float64(imported))
	m.RecordsSkipped.Add(float64(skipped))
}

// RecordUploadError records an upload that was rejected or aborted
func (m *Metrics) RecordUploadError() {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues("error").Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cacheType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cacheType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordReconcile records one reconciliation run
func (m *Metrics) RecordReconcile(status string, tenants, corrected int) {
	if m == nil {
		return
	}
	m.ReconcileRuns.WithLabelValues(status).Inc()
	m.Tenants.Set(float64(tenants))
	m.ReconcileCorrected.Add(float64(corrected))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
