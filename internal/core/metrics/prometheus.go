package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements MetricsCollector using Prometheus metrics
type PrometheusCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Engine Metrics
	recomputesTotal   *prometheus.CounterVec
	recomputeDuration *prometheus.HistogramVec
	alertsTotal       *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec

	// Upstream Metrics
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector with its
// own registry
func NewPrometheusCollector(config *MetricsConfig) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "kpi",
		}
	}

	prefix := config.Prefix
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	// Initialize HTTP metrics
	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Initialize engine metrics
	collector.recomputesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_recomputes_total",
			Help: "Total number of KPI recompute cycles by outcome",
		},
		[]string{"outcome"},
	)

	collector.recomputeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_recompute_duration_seconds",
			Help:    "KPI recompute cycle duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"outcome"},
	)

	collector.alertsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alerts_total",
			Help: "Total number of KPI alerts raised",
		},
		[]string{"type", "level"},
	)

	collector.statusTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_status_transitions_total",
			Help: "Total number of KPI goal status changes",
		},
		[]string{"from", "to"},
	)

	// Initialize upstream metrics
	collector.upstreamRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_upstream_requests_total",
			Help: "Total number of metrics provider requests",
		},
		[]string{"source", "success"},
	)

	collector.upstreamDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_upstream_request_duration_seconds",
			Help:    "Metrics provider request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	return collector
}

// RecordHTTPRequest records HTTP request metrics
func (p *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRecompute records one recompute cycle
func (p *PrometheusCollector) RecordRecompute(outcome string, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.recomputesTotal.WithLabelValues(outcome).Inc()
	p.recomputeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordAlert records a raised alert
func (p *PrometheusCollector) RecordAlert(alertType, level string) {
	if !p.config.Enabled {
		return
	}

	p.alertsTotal.WithLabelValues(alertType, level).Inc()
}

// RecordStatusTransition records a goal status change
func (p *PrometheusCollector) RecordStatusTransition(from, to string) {
	if !p.config.Enabled {
		return
	}

	p.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordUpstreamRequest records a metrics provider call
func (p *PrometheusCollector) RecordUpstreamRequest(source string, success bool, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.upstreamRequests.WithLabelValues(source, strconv.FormatBool(success)).Inc()
	p.upstreamDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// Registry returns the registry the collector's metrics live in
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the collector's registry in the Prometheus exposition format
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
