package ports

import (
	"context"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

// TopologyObserver receives change notifications from a TopologySource.
// Implementations must return quickly; notifications are delivered
// synchronously on the mutating goroutine.
type TopologyObserver interface {
	// EdgeAdded reports a newly created connection.
	EdgeAdded(edge domain.Edge)

	// EdgeRemoved reports a deleted connection.
	EdgeRemoved(edge domain.Edge)

	// NodeRemoved reports that a node and all of its connections were
	// removed from the topology.
	NodeRemoved(nodeID string)
}

// TopologySource is the engine's read-only view of the externally owned
// graph structure. The editing layer (a canvas, a loader, a test) owns and
// mutates the edge set; the engine only snapshots it and subscribes to
// change notifications.
type TopologySource interface {
	// Edges returns a snapshot of every connection currently in the
	// topology. The returned slice is owned by the caller.
	Edges() []domain.Edge

	// Subscribe registers an observer for topology changes and returns an
	// unsubscribe function. Calling unsubscribe more than once is harmless.
	Subscribe(observer TopologyObserver) (unsubscribe func())
}

// ExecutionObserver receives lifecycle notifications for execution passes.
// Notifications fire synchronously on the executing goroutine: started
// before the first node, one NodeProcessed per executed node, completed
// after the last. Observers must not call back into the executor's
// execution operations; such calls land while a pass is running and are
// ignored.
type ExecutionObserver interface {
	// ExecutionStarted reports that a pass is about to run.
	ExecutionStarted(ctx context.Context, info domain.PassInfo)

	// NodeProcessed reports the outcome of one processor execution.
	NodeProcessed(ctx context.Context, result domain.NodeResult)

	// ExecutionCompleted reports that the pass finished.
	ExecutionCompleted(ctx context.Context, result domain.PassResult)
}

// Executor drives processors in dependency-consistent order in reaction to
// value changes, explicit execution requests, and topology edits. All
// execution is synchronous on the calling goroutine; the executor owns no
// goroutines of its own.
type Executor interface {
	// RegisterProcessor adds a processor under its node id, replacing and
	// detaching any processor previously registered under the same id.
	// Registration recomputes the execution order.
	RegisterProcessor(p Processor) error

	// UnregisterProcessor removes the processor for the given node id and
	// recomputes the execution order. It reports whether a processor was
	// actually removed.
	UnregisterProcessor(nodeID string) bool

	// Processor returns the registered processor for the node id.
	Processor(nodeID string) (Processor, bool)

	// RebuildDependencyGraph re-derives the dependency graph and the
	// topological order from the topology source's current edge set.
	RebuildDependencyGraph()

	// ExecuteAll runs every registered processor once in topological
	// order. It reports whether a pass actually ran; the request is
	// silently ignored while another pass is executing or a batch is
	// accumulating.
	ExecuteAll(ctx context.Context) bool

	// ExecuteFrom runs the given node and every transitive dependent in
	// topological order. Unknown node ids are silently ignored, as are
	// requests while a pass is executing or a batch is accumulating.
	ExecuteFrom(ctx context.Context, nodeID string) bool

	// PropagateFromPort pushes the current value of one output port to
	// every directly connected input port. It reports whether any value
	// was delivered. Unknown nodes or ports are silently ignored, as are
	// calls while a pass is executing.
	PropagateFromPort(nodeID, portID string) bool

	// BeginBatch suspends immediate propagation and starts accumulating
	// changed processors into a dirty set. It reports whether batching
	// actually started; the call is ignored unless the executor is idle.
	BeginBatch() bool

	// EndBatch executes every accumulated dirty processor exactly once in
	// topological order and resumes immediate propagation. It reports
	// whether a flush pass ran; with nothing accumulated the batch ends
	// with no pass and no notifications.
	EndBatch(ctx context.Context) bool

	// Subscribe registers an execution observer and returns an
	// unsubscribe function.
	Subscribe(observer ExecutionObserver) (unsubscribe func())

	// Close detaches the executor from the topology source and from every
	// registered processor's ports. A closed executor ignores all further
	// requests. Close is idempotent.
	Close() error
}
