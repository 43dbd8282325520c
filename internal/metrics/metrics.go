// Package metrics holds the Prometheus collectors for the conversion service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricNamespace = "doctext"

	// ResultOK labels a successful conversion.
	ResultOK = "ok"
)

// Metrics groups the collectors on a private registry so tests and multiple
// servers in one process do not collide on the global registry.
type Metrics struct {
	registry            *prometheus.Registry
	conversions         *prometheus.CounterVec
	conversionDurations *prometheus.HistogramVec
	inputBytes          prometheus.Histogram
	httpRequests        *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "conversions_total",
				Help:      "The total number of conversions partitioned by extension and result",
			},
			[]string{"extension", "result"},
		),
		conversionDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "conversion_duration_seconds",
				Help:      "Time spent converting decoded payloads partitioned by converter",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"converter"},
		),
		inputBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "input_bytes",
				Help:      "Size of decoded payloads in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "http_requests_total",
				Help:      "The total number of HTTP requests partitioned by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	m.registry.MustRegister(
		m.conversions,
		m.conversionDurations,
		m.inputBytes,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveConversion records the outcome of one request. result is ResultOK or an
// error kind; extension may be empty when the request failed before it was known.
func (m *Metrics) ObserveConversion(extension, result string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(extension, result).Inc()
}

// ObserveDuration records how long a converter ran.
func (m *Metrics) ObserveDuration(converter string, d time.Duration) {
	if m == nil {
		return
	}
	m.conversionDurations.WithLabelValues(converter).Observe(d.Seconds())
}

// ObserveInputSize records the size of a decoded payload.
func (m *Metrics) ObserveInputSize(n int) {
	if m == nil {
		return
	}
	m.inputBytes.Observe(float64(n))
}

// ObserveHTTP records a completed HTTP request.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
