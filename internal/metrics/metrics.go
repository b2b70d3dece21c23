// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal                *prometheus.CounterVec
	capturesTotal              *prometheus.CounterVec
	inferenceTotal             *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uxlens_audits_total",
				Help: "Total number of audit requests, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		capturesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uxlens_captures_total",
				Help: "Total number of screenshot captures, labeled by retry profile and outcome.",
			},
			[]string{"profile", "outcome"},
		)

		inferenceTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uxlens_inference_batches_total",
				Help: "Total number of inference batches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveAudit increments the audit counter for the given mode and outcome.
func ObserveAudit(mode, outcome string) {
	Init()
	auditsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveCapture increments the capture counter.
func ObserveCapture(profile, outcome string) {
	Init()
	capturesTotal.WithLabelValues(profile, outcome).Inc()
}

// ObserveInference increments the inference batch counter.
func ObserveInference(outcome string) {
	Init()
	inferenceTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
