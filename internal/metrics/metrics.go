// Package metrics exposes Prometheus collectors for upstream fetches and
// the web server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card/internal/api"
)

const namespace = "card"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	coalesced      *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	sseClients     prometheus.Gauge
	publishFailure *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetches_total",
			Help:      "Upstream fetches by operation and outcome",
		}, []string{"op", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		coalesced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "coalesced_triggers_total",
			Help:      "Triggers that joined a fetch already in flight",
		}, []string{"op"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		sseClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "event_streams",
			Help:      "Open server-sent event streams",
		}),
		publishFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "failures_total",
			Help:      "State change messages that could not be published",
		}, []string{"publisher"}),
	}
}

// FetchCompleted records one upstream call. Outcome is "ok" or the error kind.
func (m *Metrics) FetchCompleted(op string, kind api.Kind, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = kind.String()
	}
	m.fetches.WithLabelValues(op, outcome).Inc()
	m.fetchDuration.WithLabelValues(op).Observe(d.Seconds())
}

// FetchCoalesced records a trigger that joined an in-flight fetch.
func (m *Metrics) FetchCoalesced(op string) {
	m.coalesced.WithLabelValues(op).Inc()
}

// ObserveHTTP records a finished request.
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// StreamOpened and StreamClosed track live event streams.
func (m *Metrics) StreamOpened() { m.sseClients.Inc() }
func (m *Metrics) StreamClosed() { m.sseClients.Dec() }

// PublishFailed counts a message dropped by a publisher.
func (m *Metrics) PublishFailed(publisher string) {
	m.publishFailure.WithLabelValues(publisher).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
