package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	"github.com/bryanwahyu/autovuln/internal/domain/scans"
)

// Metrics holds the HTTP and scan collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	scansTotal    *prometheus.CounterVec
	scansRunning  prometheus.Gauge
	scanDuration  *prometheus.HistogramVec
	toolRuns      *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	findingsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autovuln_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autovuln_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.requestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autovuln_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	m.scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autovuln_scans_total",
		Help: "Finished scans by terminal status",
	}, []string{"status"})
	m.scansRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autovuln_scans_running",
		Help: "Scans currently running",
	})
	m.scanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autovuln_scan_duration_seconds",
		Help:    "Wall time of finished scans",
		Buckets: []float64{5, 15, 30, 60, 120, 180, 240, 300, 600},
	}, []string{"status"})
	m.toolRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autovuln_tool_runs_total",
		Help: "Tool invocations by outcome",
	}, []string{"tool", "outcome"})
	m.toolDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autovuln_tool_duration_seconds",
		Help:    "Tool invocation latency",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120},
	}, []string{"tool"})
	m.findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autovuln_findings_total",
		Help: "Findings committed by completed scans",
	}, []string{"severity", "tool"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration, m.requestsInFlight,
		m.scansTotal, m.scansRunning, m.scanDuration,
		m.toolRuns, m.toolDuration, m.findingsTotal,
	)
	return m
}

// Middleware tracks request metrics, labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		start := time.Now()
		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ScanStarted(scans.Mode) { m.scansRunning.Inc() }

// ScanRejected counts a scan that failed before it ever ran.
func (m *Metrics) ScanRejected() {
	m.scansTotal.WithLabelValues(string(scans.StatusFailed)).Inc()
}

func (m *Metrics) ScanFinished(status scans.Status, elapsed time.Duration) {
	m.scansRunning.Dec()
	m.scansTotal.WithLabelValues(string(status)).Inc()
	m.scanDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ToolFinished(tool findings.Tool, exitCode int, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case exitCode < 0:
		outcome = "error"
	case exitCode > 0:
		outcome = "nonzero_exit"
	}
	m.toolRuns.WithLabelValues(string(tool), outcome).Inc()
	m.toolDuration.WithLabelValues(string(tool)).Observe(elapsed.Seconds())
}

func (m *Metrics) FindingsRecorded(fs []findings.Finding) {
	for _, f := range fs {
		m.findingsTotal.WithLabelValues(string(f.Severity), string(f.SourceTool)).Inc()
	}
}
