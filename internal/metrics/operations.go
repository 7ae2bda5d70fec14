package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RetryAttempts counts attempts made by the eventual-consistency retry, by operation and outcome.
	// outcome is one of "success", "retry", "abort" or "exhausted".
	RetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azfluent_retry_attempts_total",
			Help: "Total number of attempts made by retried operations",
		},
		[]string{"operation", "outcome"},
	)

	// LongRunningOperations counts LROs started and finished.
	LongRunningOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azfluent_lro_total",
			Help: "Total number of long-running operations by method and result",
		},
		[]string{"method", "result"},
	)

	// ResourceOperations counts fluent create/update submissions by resource type.
	ResourceOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azfluent_resource_operations_total",
			Help: "Total number of fluent create and update submissions",
		},
		[]string{"resource_type", "operation", "status"},
	)
)

func registerOperationMetrics() error {
	return register(
		RetryAttempts,
		LongRunningOperations,
		ResourceOperations,
	)
}
