// Package metrics holds the Prometheus collectors of the converter.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names used as the "stage" label.
const (
	StageFetch     = "fetch"
	StageParse     = "parse"
	StageLanding   = "landing"
	StageDescribe  = "describe"
	StageTranslate = "translate"
	StageExport    = "export"
	StageSubmit    = "submit"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultPartial = "partial"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	// Stages counts pipeline steps by stage and result.
	Stages *prometheus.CounterVec

	// RequestDuration tracks HTTP handler latency.
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with the Go and process
// collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swagger2dcat",
				Name:      "stage_total",
				Help:      "Pipeline steps by stage and result",
			},
			[]string{"stage", "result"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swagger2dcat",
				Name:      "http_request_duration_seconds",
				Help:      "Time spent serving HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}
	m.registry.MustRegister(
		m.Stages,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe counts one pipeline step. It is safe on a nil receiver.
func (m *Metrics) Observe(stage, result string) {
	if m == nil {
		return
	}
	m.Stages.WithLabelValues(stage, result).Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
