// Package middleware provides cross-cutting concerns for the dataflow
// engine: metrics collection, tracing and logging observers, and
// rate-limited executor wrapping.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements
// MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// Metric names recorded by the engine and its observers. Collectors
// route on these, so they are shared constants rather than scattered
// literals.
const (
	// MetricExecutions counts execution passes by trigger.
	MetricExecutions = "dataflow_executions_total"

	// MetricNodesProcessed counts node invocations by status.
	MetricNodesProcessed = "dataflow_nodes_processed_total"

	// MetricPropagations counts delivered port-to-port value pushes.
	MetricPropagations = "dataflow_propagations_total"

	// MetricDirtyMarks counts nodes marked dirty while batching.
	MetricDirtyMarks = "dataflow_dirty_marks_total"

	// MetricTypeErrors counts propagations rejected by a target port.
	MetricTypeErrors = "dataflow_type_errors_total"

	// MetricRegisteredProcessors gauges the current registry size.
	MetricRegisteredProcessors = "dataflow_registered_processors"

	// OpExecutionPass is the latency operation for a whole pass.
	OpExecutionPass = "execution_pass"

	// OpNodeProcess is the latency operation for one node invocation.
	OpNodeProcess = "node_process"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of pass execution,
// per-node latency, propagation volume, and engine state.
type PrometheusMetrics struct {
	passLatency      *prometheus.HistogramVec
	nodeLatency      *prometheus.HistogramVec
	passCounter      *prometheus.CounterVec
	nodesCounter     *prometheus.CounterVec
	propagations     *prometheus.CounterVec
	dirtyMarks       *prometheus.CounterVec
	typeErrors       *prometheus.CounterVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance registered
// in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWithRegisterer creates a PrometheusMetrics
// instance registered with the given registerer. Tests use this with a
// fresh registry so repeated construction never double-registers.
func NewPrometheusMetricsWithRegisterer(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		passLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataflow_execution_duration_seconds",
				Help:    "Duration of complete execution passes.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		nodeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataflow_node_duration_seconds",
				Help:    "Duration of individual node invocations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		passCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricExecutions,
				Help: "Total number of execution passes by trigger.",
			},
			[]string{"trigger"},
		),
		nodesCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNodesProcessed,
				Help: "Total number of node invocations by status.",
			},
			[]string{"status"},
		),
		propagations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPropagations,
				Help: "Total number of port-to-port value deliveries.",
			},
			[]string{"node"},
		),
		dirtyMarks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDirtyMarks,
				Help: "Total number of nodes marked dirty during batches.",
			},
			[]string{"node"},
		),
		typeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTypeErrors,
				Help: "Total number of propagations rejected by a target port's type.",
			},
			[]string{"node"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dataflow_operations_total",
				Help: "Total number of miscellaneous engine operations.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dataflow_engine_state",
				Help: "Current engine state values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// durations in the operation's histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case OpExecutionPass:
		pm.passLatency.WithLabelValues(labelOr(labels, "trigger", "unknown")).Observe(duration.Seconds())
	case OpNodeProcess:
		pm.nodeLatency.WithLabelValues(labelOr(labels, "node", "unknown")).Observe(duration.Seconds())
	default:
		pm.passLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by
// incrementing the counter family the metric name routes to.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricExecutions:
		pm.passCounter.WithLabelValues(labelOr(labels, "trigger", "unknown")).Add(value)
	case MetricNodesProcessed:
		pm.nodesCounter.WithLabelValues(labelOr(labels, "status", "unknown")).Add(value)
	case MetricPropagations:
		pm.propagations.WithLabelValues(labelOr(labels, "node", "unknown")).Add(value)
	case MetricDirtyMarks:
		pm.dirtyMarks.WithLabelValues(labelOr(labels, "node", "unknown")).Add(value)
	case MetricTypeErrors:
		pm.typeErrors.WithLabelValues(labelOr(labels, "node", "unknown")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, "success").Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting the
// named engine state gauge.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a histogram. This currently routes all histograms to the
// pass latency family under the metric's name; metric-specific
// histograms can be added as call sites appear.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.passLatency.WithLabelValues(metric).Observe(value)
}

// labelOr returns labels[key], or fallback when the key is absent.
func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok {
		return v
	}
	return fallback
}
