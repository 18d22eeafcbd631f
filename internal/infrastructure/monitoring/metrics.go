package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Every method is safe on a nil
// receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Release proxy metrics
	ReleaseFetches     *prometheus.CounterVec
	ReleaseBundleBytes prometheus.Histogram

	// Bootstrap metrics
	BootstrapPhases   *prometheus.CounterVec
	BootstrapOutcomes *prometheus.CounterVec
	BootstrapDuration prometheus.Histogram

	// Bridge metrics
	BridgeImports *prometheus.CounterVec
	BridgeExports *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge
	WSMessages     *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ncube_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ncube_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		ReleaseFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_release_fetches_total",
				Help: "Upstream release fetches by result",
			},
			[]string{"result"},
		),
		ReleaseBundleBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ncube_release_bundle_bytes",
				Help:    "Size of fetched release bundles",
				Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10),
			},
		),

		BootstrapPhases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_bootstrap_phase_total",
				Help: "Bootstrap phase entries",
			},
			[]string{"phase"},
		),
		BootstrapOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_bootstrap_outcome_total",
				Help: "Finished bootstraps by outcome",
			},
			[]string{"outcome"},
		),
		BootstrapDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ncube_bootstrap_duration_seconds",
				Help:    "Time from session start to Loaded",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		BridgeImports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_bridge_imports_total",
				Help: "Drag-and-drop imports by result",
			},
			[]string{"result"},
		),
		BridgeExports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_bridge_exports_total",
				Help: "Data file exports by result",
			},
			[]string{"result"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ncube_sessions_active",
				Help: "Number of live sessions",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncube_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ncube_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordReleaseFetch records an upstream fetch through the proxy.
func (m *Metrics) RecordReleaseFetch(err error, size int) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReleaseFetches.WithLabelValues("error").Inc()
		return
	}
	m.ReleaseFetches.WithLabelValues("ok").Inc()
	m.ReleaseBundleBytes.Observe(float64(size))
}

// RecordPhase counts entry into a bootstrap phase.
func (m *Metrics) RecordPhase(phase string) {
	if m == nil {
		return
	}
	m.BootstrapPhases.WithLabelValues(phase).Inc()
}

// RecordBootstrap records a finished bootstrap.
func (m *Metrics) RecordBootstrap(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BootstrapOutcomes.WithLabelValues(outcome).Inc()
	if outcome == "loaded" {
		m.BootstrapDuration.Observe(duration.Seconds())
	}
}

// RecordImport counts a get_drag_drop_data call.
func (m *Metrics) RecordImport(hit bool) {
	if m == nil {
		return
	}
	result := "empty"
	if hit {
		result = "hit"
	}
	m.BridgeImports.WithLabelValues(result).Inc()
}

// RecordExport counts an export_to_data_file call.
func (m *Metrics) RecordExport(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BridgeExports.WithLabelValues(result).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}
