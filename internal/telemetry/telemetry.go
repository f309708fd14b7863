// Package telemetry exposes Prometheus collectors for the monitoring pipeline.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanCyclesTotal         *prometheus.CounterVec
	fetchErrorsTotal        *prometheus.CounterVec
	circuitTransitionsTotal *prometheus.CounterVec
	gateDecisionsTotal      *prometheus.CounterVec
	classifierCallsTotal    *prometheus.CounterVec
	classifierRetriesTotal  prometheus.Counter
	classifierWaitSeconds   prometheus.Histogram
	queueOpsTotal           *prometheus.CounterVec
	queueDepth              prometheus.Gauge
	validatorAggregates     prometheus.Gauge
	signalsTotal            *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times.
func Init() {
	once.Do(func() {
		scanCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_scan_cycles_total",
				Help: "Total scan cycles executed, labeled by source group.",
			},
			[]string{"group"},
		)

		fetchErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_fetch_errors_total",
				Help: "Total fetch failures, labeled by source and error class.",
			},
			[]string{"source", "class"},
		)

		circuitTransitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_circuit_transitions_total",
				Help: "Circuit breaker transitions, labeled by source and new state.",
			},
			[]string{"source", "state"},
		)

		gateDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_gate_decisions_total",
				Help: "Relevance gate routing decisions, labeled by route.",
			},
			[]string{"route"},
		)

		classifierCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_classifier_calls_total",
				Help: "Remote classifier calls, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		classifierRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rosterwatch_classifier_retries_total",
				Help: "Total classifier retry attempts.",
			},
		)

		classifierWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rosterwatch_classifier_wait_seconds",
				Help:    "Time spent waiting on the shared classifier rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
		)

		queueOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_queue_ops_total",
				Help: "Discovery queue operations, labeled by op (push, match, expire, evict).",
			},
			[]string{"op"},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rosterwatch_queue_depth",
				Help: "Current number of items in the discovery queue.",
			},
		)

		validatorAggregates = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rosterwatch_validator_aggregates",
				Help: "Currently tracked cross-source aggregates.",
			},
		)

		signalsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterwatch_signals_total",
				Help: "Signals produced, labeled by category and multi-source flag.",
			},
			[]string{"category", "multi_source"},
		)
	})
}

// IncScanCycle records one completed scan cycle for a group.
func IncScanCycle(group string) {
	if scanCyclesTotal != nil {
		scanCyclesTotal.WithLabelValues(group).Inc()
	}
}

// IncFetchError records a classified fetch failure.
func IncFetchError(source, class string) {
	if fetchErrorsTotal != nil {
		fetchErrorsTotal.WithLabelValues(source, class).Inc()
	}
}

// IncCircuitTransition records a breaker state change.
func IncCircuitTransition(source, state string) {
	if circuitTransitionsTotal != nil {
		circuitTransitionsTotal.WithLabelValues(source, state).Inc()
	}
}

// IncGateDecision records a routing decision.
func IncGateDecision(route string) {
	if gateDecisionsTotal != nil {
		gateDecisionsTotal.WithLabelValues(route).Inc()
	}
}

// IncClassifierCall records a classifier call outcome ("ok" or "error").
func IncClassifierCall(outcome string) {
	if classifierCallsTotal != nil {
		classifierCallsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncClassifierRetry records one retry attempt.
func IncClassifierRetry() {
	if classifierRetriesTotal != nil {
		classifierRetriesTotal.Inc()
	}
}

// ObserveClassifierWait records time spent in the shared rate limiter.
func ObserveClassifierWait(d time.Duration) {
	if classifierWaitSeconds != nil {
		classifierWaitSeconds.Observe(d.Seconds())
	}
}

// IncQueueOp records a discovery queue operation.
func IncQueueOp(op string) {
	if queueOpsTotal != nil {
		queueOpsTotal.WithLabelValues(op).Inc()
	}
}

// SetQueueDepth publishes the current queue size.
func SetQueueDepth(n int) {
	if queueDepth != nil {
		queueDepth.Set(float64(n))
	}
}

// SetValidatorAggregates publishes the current aggregate count.
func SetValidatorAggregates(n int) {
	if validatorAggregates != nil {
		validatorAggregates.Set(float64(n))
	}
}

// IncSignal records a produced signal.
func IncSignal(category string, multiSource bool) {
	if signalsTotal != nil {
		flag := "false"
		if multiSource {
			flag = "true"
		}
		signalsTotal.WithLabelValues(category, flag).Inc()
	}
}
