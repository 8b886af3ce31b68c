// Package metrics records authentication and request metrics with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives metric events from the HTTP host.
type Recorder interface {
	// RecordAuth records the status of one strategy invocation.
	RecordAuth(strategy, status string, d time.Duration)
	// RecordRequest records a handled request. route is the matched pattern.
	RecordRequest(method, route string, status int, d time.Duration)
}

var _ Recorder = (*Metrics)(nil)

// Metrics is a Prometheus backed Recorder.
type Metrics struct {
	registry *prometheus.Registry

	AuthAttemptsTotal   *prometheus.CounterVec
	AuthDuration        *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, so several instances can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokengate_auth_attempts_total",
				Help: "Total number of strategy invocations by result status",
			},
			[]string{"strategy", "status"},
		),
		AuthDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokengate_auth_duration_seconds",
				Help:    "Strategy invocation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"strategy"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokengate_http_requests_total",
				Help: "Total number of handled HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokengate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordAuth implements Recorder.
func (m *Metrics) RecordAuth(strategy, status string, d time.Duration) {
	m.AuthAttemptsTotal.WithLabelValues(strategy, status).Inc()
	m.AuthDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// RecordRequest implements Recorder.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Noop discards every event.
type Noop struct{}

var _ Recorder = Noop{}

// RecordAuth implements Recorder.
func (Noop) RecordAuth(string, string, time.Duration) {}

// RecordRequest implements Recorder.
func (Noop) RecordRequest(string, string, int, time.Duration) {}
