package middleware

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.ExecutionObserver = (*OTelObserver)(nil)

// tracerName identifies this instrumentation library to the OTel SDK.
const tracerName = "dataflow-executor"

// OTelObserver implements execution observability using OpenTelemetry
// tracing. Each execution pass becomes one span carrying the trigger and
// schedule size, with a span event per processed node and error status
// when any node failed.
//
// The observer tracks one span at a time, which matches the executor's
// single-pass guarantee. Subscribe a separate instance per executor.
type OTelObserver struct {
	mu   sync.Mutex
	span trace.Span
}

// NewOTelObserver creates an OpenTelemetry execution observer.
func NewOTelObserver() *OTelObserver {
	return &OTelObserver{}
}

// ExecutionStarted opens the pass span and records the initial pass
// attributes.
func (o *OTelObserver) ExecutionStarted(ctx context.Context, info domain.PassInfo) {
	tracer := otel.Tracer(tracerName)
	_, span := tracer.Start(ctx, "Executor.ExecutePass", trace.WithAttributes(
		attribute.String("dataflow.pass_id", info.ID),
		attribute.String("dataflow.trigger", string(info.Trigger)),
		attribute.Int("dataflow.nodes", info.Nodes),
	))

	o.mu.Lock()
	o.span = span
	o.mu.Unlock()
}

// NodeProcessed records one node invocation as a span event.
func (o *OTelObserver) NodeProcessed(ctx context.Context, result domain.NodeResult) {
	o.mu.Lock()
	span := o.span
	o.mu.Unlock()
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("dataflow.node", result.NodeID),
		attribute.Int("dataflow.rank", result.Rank),
		attribute.Int64("dataflow.duration_us", result.Duration.Microseconds()),
	}
	if result.Err != nil {
		attrs = append(attrs, attribute.String("dataflow.error", result.Err.Error()))
		span.AddEvent("node.failed", trace.WithAttributes(attrs...))
		return
	}
	span.AddEvent("node.processed", trace.WithAttributes(attrs...))
}

// ExecutionCompleted finalizes the pass span with the outcome counts and
// status.
func (o *OTelObserver) ExecutionCompleted(ctx context.Context, result domain.PassResult) {
	o.mu.Lock()
	span := o.span
	o.span = nil
	o.mu.Unlock()
	if span == nil {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.Int("dataflow.processed", result.Processed),
		attribute.Int("dataflow.failed", result.Failed),
	)

	if result.Failed > 0 {
		span.SetStatus(codes.Error, "one or more nodes failed")
		return
	}
	span.SetStatus(codes.Ok, "pass completed")
}
