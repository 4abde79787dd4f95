package middleware

import (
	"context"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.ExecutionObserver = (*MetricsObserver)(nil)

// MetricsObserver records execution pass and node metrics through a
// MetricsCollector. Subscribe it to an executor to get pass counts, pass
// and node latency, and node failure counts without touching the engine.
type MetricsObserver struct {
	metrics ports.MetricsCollector
}

// NewMetricsObserver creates an observer recording through the given
// collector.
func NewMetricsObserver(metrics ports.MetricsCollector) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

// ExecutionStarted counts the pass under its trigger.
func (o *MetricsObserver) ExecutionStarted(ctx context.Context, info domain.PassInfo) {
	o.metrics.RecordCounter(MetricExecutions, 1, map[string]string{
		"trigger": string(info.Trigger),
	})
}

// NodeProcessed records the node's latency and outcome.
func (o *MetricsObserver) NodeProcessed(ctx context.Context, result domain.NodeResult) {
	status := "ok"
	if result.Err != nil {
		status = "error"
	}
	o.metrics.RecordCounter(MetricNodesProcessed, 1, map[string]string{"status": status})
	o.metrics.RecordLatency(OpNodeProcess, result.Duration, map[string]string{
		"node": result.NodeID,
	})
}

// ExecutionCompleted records the pass latency.
func (o *MetricsObserver) ExecutionCompleted(ctx context.Context, result domain.PassResult) {
	o.metrics.RecordLatency(OpExecutionPass, result.Duration, map[string]string{
		"trigger": string(result.Trigger),
	})
}
