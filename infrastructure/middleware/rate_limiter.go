package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.Executor = (*RateLimitedExecutor)(nil)

// RateLimitedExecutor wraps an Executor with a token bucket limiting how
// often execution passes may run. UI hosts sit between high-frequency
// input events (slider drags, pointer moves) and a synchronous engine;
// the limiter sheds the excess instead of queueing it. A request denied
// by the limiter reports false, the same silent no-op the engine already
// defines for a busy executor, and the freshest values still win because
// the next admitted pass reads current port state.
//
// Only pass-starting operations consume tokens: ExecuteAll, ExecuteFrom,
// and EndBatch. Everything else, including one-hop propagation and batch
// accumulation, forwards untouched.
type RateLimitedExecutor struct {
	next    ports.Executor
	limiter *rate.Limiter
}

// NewRateLimitedExecutor wraps next with a token bucket admitting limit
// passes per second with the given burst.
func NewRateLimitedExecutor(next ports.Executor, limit rate.Limit, burst int) *RateLimitedExecutor {
	return &RateLimitedExecutor{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ExecuteAll runs a full pass if the limiter admits it.
func (r *RateLimitedExecutor) ExecuteAll(ctx context.Context) bool {
	if !r.limiter.Allow() {
		return false
	}
	return r.next.ExecuteAll(ctx)
}

// ExecuteFrom runs an incremental pass if the limiter admits it.
func (r *RateLimitedExecutor) ExecuteFrom(ctx context.Context, nodeID string) bool {
	if !r.limiter.Allow() {
		return false
	}
	return r.next.ExecuteFrom(ctx, nodeID)
}

// EndBatch flushes the batch if the limiter admits it. A denied flush
// leaves the executor batching with its dirty set intact, so the caller
// can retry.
func (r *RateLimitedExecutor) EndBatch(ctx context.Context) bool {
	if !r.limiter.Allow() {
		return false
	}
	return r.next.EndBatch(ctx)
}

// BeginBatch forwards to the wrapped executor.
func (r *RateLimitedExecutor) BeginBatch() bool { return r.next.BeginBatch() }

// PropagateFromPort forwards to the wrapped executor; one-hop
// propagation is not a pass and is never shed.
func (r *RateLimitedExecutor) PropagateFromPort(nodeID, portID string) bool {
	return r.next.PropagateFromPort(nodeID, portID)
}

// RegisterProcessor forwards to the wrapped executor.
func (r *RateLimitedExecutor) RegisterProcessor(p ports.Processor) error {
	return r.next.RegisterProcessor(p)
}

// UnregisterProcessor forwards to the wrapped executor.
func (r *RateLimitedExecutor) UnregisterProcessor(nodeID string) bool {
	return r.next.UnregisterProcessor(nodeID)
}

// Processor forwards to the wrapped executor.
func (r *RateLimitedExecutor) Processor(nodeID string) (ports.Processor, bool) {
	return r.next.Processor(nodeID)
}

// RebuildDependencyGraph forwards to the wrapped executor.
func (r *RateLimitedExecutor) RebuildDependencyGraph() {
	r.next.RebuildDependencyGraph()
}

// Subscribe forwards to the wrapped executor.
func (r *RateLimitedExecutor) Subscribe(observer ports.ExecutionObserver) (unsubscribe func()) {
	return r.next.Subscribe(observer)
}

// Close forwards to the wrapped executor.
func (r *RateLimitedExecutor) Close() error { return r.next.Close() }
