// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route pattern and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Solves counts minimizations by oracle and reported status
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "qroute_solves_total", Help: "QUBO minimizations by oracle and status."},
		[]string{"oracle", "status"},
	)
	// SolveDuration tracks minimization wall time in seconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "qroute_solve_duration_seconds", Help: "QUBO minimization time in seconds.", Buckets: []float64{.001, .01, .05, .1, .3, .5, 1, 2, 5, 10}},
		[]string{"oracle"},
	)
	// QUBOVariables tracks the binary variable count of solved objectives
	QUBOVariables = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "qroute_qubo_variables", Help: "Binary variables per QUBO objective.", Buckets: prometheus.ExponentialBuckets(4, 2, 10)},
	)
	// DegradedPaths counts paths decoded from constraint-violating assignments
	DegradedPaths = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "qroute_degraded_paths_total", Help: "Paths decoded from assignments that violate the hop constraints."},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers the collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(QUBOVariables)
		Registry.MustRegister(DegradedPaths)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveSolve records one minimization.
func ObserveSolve(oracle, status string, variables int, elapsed time.Duration, degraded bool) {
	Solves.WithLabelValues(oracle, status).Inc()
	SolveDuration.WithLabelValues(oracle).Observe(elapsed.Seconds())
	QUBOVariables.Observe(float64(variables))
	if degraded {
		DegradedPaths.Inc()
	}
}
