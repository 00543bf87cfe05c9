// Package metrics holds the Prometheus collectors of the gateway.
//
// Each Metrics value owns its own prometheus.Registry so tests and multiple
// servers in one process never collide on registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "valgate"

// Forward outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "upstream_error"
)

// Metrics groups the collectors updated by the HTTP layer.
type Metrics struct {
	registry          *prometheus.Registry
	requests          *prometheus.CounterVec
	forwarded         *prometheus.CounterVec
	forwardDuration   *prometheus.HistogramVec
	selectionFailures *prometheus.CounterVec
	validators        prometheus.Gauge
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by route and status code.",
			},
			[]string{"route", "code"},
		),
		forwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forwarded_requests_total",
				Help:      "Requests forwarded to validators, by validator and outcome.",
			},
			[]string{"validator", "outcome"},
		),
		forwardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forward_duration_seconds",
				Help:      "Round-trip time of forwarded requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"validator"},
		),
		selectionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selection_failures_total",
				Help:      "Requests for which no validator could be selected.",
			},
			[]string{"reason"},
		),
		validators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validators",
			Help:      "Number of configured validators.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.forwarded,
		m.forwardDuration,
		m.selectionFailures,
		m.validators,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveForward records one forward attempt.
func (m *Metrics) ObserveForward(validator, outcome string, took time.Duration) {
	m.forwarded.WithLabelValues(validator, outcome).Inc()
	m.forwardDuration.WithLabelValues(validator).Observe(took.Seconds())
}

// ObserveSelectionFailure counts a request that matched no validator.
func (m *Metrics) ObserveSelectionFailure(reason string) {
	m.selectionFailures.WithLabelValues(reason).Inc()
}

// SetValidators publishes the registry size.
func (m *Metrics) SetValidators(n int) {
	m.validators.Set(float64(n))
}
