package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	renders         *prometheus.CounterVec
	pdfDuration     *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invoice",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoice",
			Name:      "renders_total",
			Help:      "Invoice renders by template and outcome.",
		}, []string{"template", "outcome"}),
		pdfDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invoice",
			Subsystem: "pdf",
			Name:      "conversion_duration_seconds",
			Help:      "PDF conversion latency by backend and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"backend", "outcome"}),
	}
	reg.MustRegister(
		m.requestDuration,
		m.renders,
		m.pdfDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveRender counts a render attempt.
func (m *Metrics) ObserveRender(template string, err error) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(template, outcome(err)).Inc()
}

// ObservePDF records one PDF conversion.
func (m *Metrics) ObservePDF(backend string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.pdfDuration.WithLabelValues(backend, outcome(err)).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
