// Package metrics holds the Prometheus collectors of the crawl service.
//
// A Metrics owns its registry, so several instances can coexist in one
// process. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric name.
const namespace = "imagefinder"

// Page fetch results used as the "result" label.
const (
	ResultOK          = "ok"
	ResultStatusError = "status_error"
	ResultError       = "error"
	ResultCached      = "cached"
	ResultSkipped     = "skipped"
)

// Metrics holds all collectors.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Crawl metrics
	CrawlsActive  prometheus.Gauge
	CrawlsTotal   prometheus.Counter
	PagesTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	ImagesTotal   *prometheus.CounterVec
	CrawlDelay    prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		CrawlsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "crawls_active",
				Help:      "Number of crawls in progress",
			},
		),
		CrawlsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crawls_total",
				Help:      "Total number of crawls started",
			},
		),
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Total number of pages visited by result",
			},
			[]string{"result"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "page_fetch_duration_seconds",
				Help:      "Page fetch duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		ImagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_total",
				Help:      "Total number of images found by kind",
			},
			[]string{"kind"},
		),
		CrawlDelay: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "crawl_delay_seconds",
				Help:      "Current adaptive delay between page requests",
			},
		),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// CrawlStarted records a new crawl and returns the function that marks it
// finished.
func (m *Metrics) CrawlStarted() func() {
	if m == nil {
		return func() {}
	}
	m.CrawlsTotal.Inc()
	m.CrawlsActive.Inc()
	return m.CrawlsActive.Dec
}

// RecordPage records one visited page. Fetch time is observed only for
// pages that were actually requested.
func (m *Metrics) RecordPage(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(result).Inc()
	if result != ResultCached && result != ResultSkipped {
		m.FetchDuration.Observe(d.Seconds())
	}
}

// RecordImages adds n images of kind.
func (m *Metrics) RecordImages(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ImagesTotal.WithLabelValues(kind).Add(float64(n))
}

// SetCrawlDelay records the current adaptive delay.
func (m *Metrics) SetCrawlDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.CrawlDelay.Set(d.Seconds())
}
