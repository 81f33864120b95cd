// Package prometheus exposes the search's operational metrics and the
// optional HTTP endpoint that serves them.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the registry all search metrics register into.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer wraps DefaultRegistry with the service label.
	DefaultRegisterer = prometheus.WrapRegistererWith(
		prometheus.Labels{"service": "bigprime"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds the search's Prometheus metrics.
type Metrics struct {
	// PrimesFound counts probable primes recorded, labeled by reporting peer
	// ("0" is the local pool).
	PrimesFound *prometheus.CounterVec

	// TasksDispatched counts candidates handed to a consumer, labeled by peer.
	TasksDispatched *prometheus.CounterVec

	// TasksReceived counts candidates a worker read off the wire.
	TasksReceived prometheus.Counter

	// ProtocolErrors counts recoverable decode errors, labeled by peer.
	ProtocolErrors *prometheus.CounterVec

	// TaskQueueDepth is the current size of the task queue.
	TaskQueueDepth prometheus.Gauge

	// ResultQueueDepth is the current size of the result queue.
	ResultQueueDepth prometheus.Gauge

	// ConnectedPeers is the number of live peer connections.
	ConnectedPeers prometheus.Gauge
}

// GetMetrics returns the process-wide metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a metrics collection registered with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		PrimesFound: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bigprime_primes_found_total",
				Help: "Total number of probable primes recorded",
			},
			[]string{"peer"},
		),
		TasksDispatched: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bigprime_tasks_dispatched_total",
				Help: "Total number of candidates dispatched for testing",
			},
			[]string{"peer"},
		),
		TasksReceived: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "bigprime_tasks_received_total",
				Help: "Total number of candidates received from the coordinator",
			},
		),
		ProtocolErrors: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bigprime_protocol_errors_total",
				Help: "Total number of recoverable wire protocol errors",
			},
			[]string{"peer"},
		),
		TaskQueueDepth: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "bigprime_task_queue_depth",
				Help: "Current number of candidates buffered in the task queue",
			},
		),
		ResultQueueDepth: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "bigprime_result_queue_depth",
				Help: "Current number of results buffered in the result queue",
			},
		),
		ConnectedPeers: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "bigprime_connected_peers",
				Help: "Number of live peer connections",
			},
		),
	}
}
