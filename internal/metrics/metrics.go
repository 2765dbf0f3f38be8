// Package metrics holds the Prometheus instruments for the analytics bridge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// EventsSubmitted counts events handed to the SDK, by operation
	// (capture, capture_batch, alias).
	EventsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_submitted_total",
			Help: "Events handed to the analytics SDK",
		},
		[]string{"operation"},
	)

	// OperationErrors counts failed façade operations by error kind
	// (configuration, build, transport).
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_operation_errors_total",
			Help: "Failed analytics operations by error kind",
		},
		[]string{"operation", "kind"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_batch_size",
			Help:    "Number of events per submitted batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// SDKDeliveries counts per-message delivery callbacks reported by the SDK.
	SDKDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_sdk_deliveries_total",
			Help: "Messages the analytics SDK reported as delivered or failed",
		},
		[]string{"result"},
	)

	ClientInitializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_client_initializations_total",
			Help: "Analytics SDK client constructions by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	BridgeInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_bridge_invocations_total",
			Help: "Bridge command invocations by command and result",
		},
		[]string{"command", "result"},
	)

	BridgeInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_bridge_invocation_duration_seconds",
			Help:    "Bridge command latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

// RecordSubmitted records n events submitted by operation.
func RecordSubmitted(operation string, n int) {
	if n <= 0 {
		return
	}
	EventsSubmitted.WithLabelValues(operation).Add(float64(n))
	if operation == "capture_batch" {
		BatchSize.Observe(float64(n))
	}
}

// RecordOperationError records a failed operation.
func RecordOperationError(operation, kind string) {
	OperationErrors.WithLabelValues(operation, kind).Inc()
}

// RecordDelivery records an SDK delivery callback.
func RecordDelivery(ok bool) {
	if ok {
		SDKDeliveries.WithLabelValues(ResultOK).Inc()
		return
	}
	SDKDeliveries.WithLabelValues(ResultError).Inc()
}

// RecordClientInit records a client construction attempt.
func RecordClientInit(strategy string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	ClientInitializations.WithLabelValues(strategy, result).Inc()
}

// RecordInvocation records a bridge command invocation.
func RecordInvocation(command string, duration time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	BridgeInvocations.WithLabelValues(command, result).Inc()
	BridgeInvocationDuration.WithLabelValues(command).Observe(duration.Seconds())
}
