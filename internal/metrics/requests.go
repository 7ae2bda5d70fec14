package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts ARM and Graph requests by host, method and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azfluent_requests_total",
			Help: "Total number of requests sent to Azure",
		},
		[]string{"host", "method", "status"},
	)

	// RequestDuration measures round-trip latency of a single request attempt.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "azfluent_request_duration_seconds",
			Help: "Azure request duration in seconds",
			// ARM calls range from tens of milliseconds to tens of seconds
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"host", "method"},
	)

	// RequestsInFlight tracks requests currently waiting on Azure.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "azfluent_requests_in_flight",
			Help: "Number of Azure requests currently in flight",
		},
	)

	// ThrottleWaitSeconds measures time spent waiting on the client-side rate limiter.
	ThrottleWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "azfluent_throttle_wait_seconds",
			Help:    "Time spent waiting for the client-side rate limiter",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 10},
		},
	)
)

func registerRequestMetrics() error {
	return register(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		ThrottleWaitSeconds,
	)
}
