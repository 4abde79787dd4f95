// Package application contains the orchestration layer of the dataflow
// engine: the executor that drives processors in dependency-consistent
// order, the topological ranking it schedules by, and the loader that
// builds processor graphs from declarative topology files.
package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.Executor = (*Executor)(nil)

// ExecutorState identifies the executor's coarse execution phase. Every
// phase change goes through a single compare-and-swap helper, so the legal
// transitions form a small auditable table:
//
//	Idle      -> Batching   (BeginBatch)
//	Batching  -> Executing  (EndBatch, flush begins)
//	Idle      -> Executing  (ExecuteAll, ExecuteFrom)
//	Executing -> Idle       (pass complete)
//	Batching  -> Idle       (EndBatch with nothing to flush)
//
// Requests whose required transition fails are silent no-ops: execution
// requests while a pass runs or a batch accumulates, BeginBatch while not
// idle, EndBatch while not batching.
type ExecutorState int32

// Executor phases.
const (
	// StateIdle means no pass is running and no batch is accumulating.
	// Output changes propagate immediately.
	StateIdle ExecutorState = iota

	// StateBatching means a batch is accumulating. Output changes mark
	// their affected set dirty instead of propagating.
	StateBatching

	// StateExecuting means an execution pass is running. Output changes
	// are ignored; the pass loop moves values itself.
	StateExecuting
)

// String returns the lowercase phase name for logs and errors.
func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBatching:
		return "batching"
	case StateExecuting:
		return "executing"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// executionObserver pairs a subscription token with its observer so that
// unsubscribe can remove exactly one registration.
type executionObserver struct {
	id  int
	obs ports.ExecutionObserver
}

// scheduleEntry is one node of a pass schedule, captured with the rank it
// held when the schedule was built.
type scheduleEntry struct {
	id   string
	rank int
	proc ports.Processor
}

// Executor drives registered processors in topological-rank order in
// reaction to output-port changes, explicit execution requests, and
// topology edits. It maintains two derived structures that are rebuilt,
// never diffed, on every structural change: the dependency graph (node id
// to directly dependent node ids) and the topological rank per node.
//
// The executor owns no goroutines. Every Process call, propagation hop,
// and notification runs synchronously on the goroutine that triggered it,
// and a single atomic state machine guarantees at most one execution pass
// at a time. Concurrent requests that lose the state race return false
// without executing anything.
type Executor struct {
	// topology is the externally owned edge set the dependency graph is
	// derived from.
	topology ports.TopologySource

	// topoUnsub detaches the executor from topology change notifications.
	topoUnsub func()

	// mu guards the processor registry and both derived structures.
	// Structural operations take the write form; lookups and pass
	// snapshots take the read form.
	mu sync.RWMutex

	// processors maps node id to the registered processor. Guarded by mu.
	processors map[string]ports.Processor

	// outputUnsubs holds, per node id, the unsubscribe functions for the
	// output-port subscriptions made at registration. Guarded by mu.
	outputUnsubs map[string][]func()

	// edges is the snapshot of the topology's edge set taken at the last
	// dependency rebuild. Guarded by mu.
	edges []domain.Edge

	// dependents is the dependency graph derived from edges: node id to
	// distinct directly dependent node ids. Guarded by mu.
	dependents map[string][]string

	// ranks is the topological rank per registered node id, with
	// RankUnordered for nodes the ranking never reached. Guarded by mu.
	ranks map[string]int

	// state is the three-phase execution state machine.
	state atomic.Int32

	// dirty is the set of node ids awaiting execution, live only while
	// batching. The sync.Map lets output notifications from racing
	// goroutines merge without touching mu; EndBatch swaps the whole set
	// out atomically.
	dirty atomic.Pointer[sync.Map]

	// closed flips once; a closed executor ignores all requests.
	closed atomic.Bool

	// obsMu guards observers separately from mu so notification fan-out
	// never contends with structural operations.
	obsMu sync.RWMutex

	// observers holds execution observers in registration order.
	observers []executionObserver

	// nextObserverID is the token handed to the next subscription.
	nextObserverID int

	logger  ports.Logger
	metrics ports.MetricsCollector
}

// ExecutorOption configures optional executor dependencies.
type ExecutorOption func(*Executor)

// WithLogger injects the logger the executor traces registration,
// propagation, and state transitions through. The default discards
// everything.
func WithLogger(logger ports.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics injects a collector for the executor's internal counters:
// propagations, dirty marks, type errors, and the registered-processor
// gauge. Pass-level metrics are the job of an ExecutionObserver.
func WithMetrics(metrics ports.MetricsCollector) ExecutorOption {
	return func(e *Executor) {
		e.metrics = metrics
	}
}

// NewExecutor creates an executor bound to the given topology source,
// subscribes to its change notifications, and derives the initial
// dependency graph and ranks from its current edge set.
func NewExecutor(topology ports.TopologySource, opts ...ExecutorOption) (*Executor, error) {
	if topology == nil {
		return nil, fmt.Errorf("executor: %w", ports.ErrNilTopology)
	}

	e := &Executor{
		topology:     topology,
		processors:   make(map[string]ports.Processor),
		outputUnsubs: make(map[string][]func()),
		dependents:   make(map[string][]string),
		ranks:        make(map[string]int),
		logger:       nopLogger{},
	}
	e.dirty.Store(&sync.Map{})
	for _, opt := range opts {
		opt(e)
	}

	e.topoUnsub = topology.Subscribe(topologyObserver{e})
	e.RebuildDependencyGraph()

	return e, nil
}

// State returns the executor's current phase. It is a point-in-time
// snapshot intended for diagnostics and tests; by the time the caller
// acts on it the phase may have changed.
func (e *Executor) State() ExecutorState {
	return ExecutorState(e.state.Load())
}

// tryTransition attempts the single legal state change from one phase to
// another. It is the only place the state machine advances; a false
// return means the executor was not in the expected phase and the caller
// must treat its request as a silent no-op.
func (e *Executor) tryTransition(from, to ExecutorState) bool {
	ok := e.state.CompareAndSwap(int32(from), int32(to))
	if !ok {
		e.logger.Debug("state transition refused",
			"from", from.String(), "to", to.String(), "current", e.State().String())
	}
	return ok
}

// RegisterProcessor adds p under its node id and subscribes to every one
// of its output ports so value changes drive propagation. Registering a
// node id that already has a processor replaces it: the prior processor's
// output subscriptions are detached first, so no dangling callbacks
// survive the swap. Registration recomputes the topological ranks.
func (e *Executor) RegisterProcessor(p ports.Processor) error {
	if e.closed.Load() {
		return ports.ErrExecutorClosed
	}
	if p == nil {
		return ports.ErrNilProcessor
	}
	nodeID := p.NodeID()
	if nodeID == "" {
		return ports.ErrEmptyNodeID
	}

	e.mu.Lock()
	if prior, ok := e.processors[nodeID]; ok {
		e.detachLocked(nodeID)
		e.logger.Info("processor replaced",
			"node", nodeID, "prior", fmt.Sprintf("%T", prior), "next", fmt.Sprintf("%T", p))
	}

	e.processors[nodeID] = p
	for portID, out := range p.OutputPorts() {
		id := nodeID
		unsub := out.OnChange(func(change domain.PortChange) {
			e.onOutputChange(id, change)
		})
		e.outputUnsubs[nodeID] = append(e.outputUnsubs[nodeID], unsub)
		e.logger.Debug("output subscribed", "node", nodeID, "port", portID)
	}
	e.recomputeRanksLocked()
	registered := len(e.processors)
	e.mu.Unlock()

	e.recordGauge("dataflow_registered_processors", float64(registered))
	return nil
}

// UnregisterProcessor detaches and removes the processor for nodeID and
// recomputes the topological ranks. It reports whether a processor was
// removed; unknown ids are a no-op.
func (e *Executor) UnregisterProcessor(nodeID string) bool {
	if e.closed.Load() {
		return false
	}

	e.mu.Lock()
	if _, ok := e.processors[nodeID]; !ok {
		e.mu.Unlock()
		return false
	}
	e.detachLocked(nodeID)
	delete(e.processors, nodeID)
	e.recomputeRanksLocked()
	registered := len(e.processors)
	e.mu.Unlock()

	e.recordGauge("dataflow_registered_processors", float64(registered))
	e.logger.Info("processor unregistered", "node", nodeID)
	return true
}

// Processor returns the registered processor for nodeID.
func (e *Executor) Processor(nodeID string) (ports.Processor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.processors[nodeID]
	return p, ok
}

// detachLocked releases the output subscriptions made for nodeID.
// Callers must hold mu.
func (e *Executor) detachLocked(nodeID string) {
	for _, unsub := range e.outputUnsubs[nodeID] {
		unsub()
	}
	delete(e.outputUnsubs, nodeID)
}

// RebuildDependencyGraph re-derives the dependency graph and topological
// ranks from the topology source's current edge set. The derived
// structures are replaced wholesale; nothing is diffed. The executor
// calls this itself on every topology notification, so hosts only need
// it when they mutate a topology the executor is not subscribed to.
func (e *Executor) RebuildDependencyGraph() {
	if e.closed.Load() {
		return
	}

	// Snapshot outside mu: the topology source takes its own lock and
	// must stay independent of the executor's.
	edges := e.topology.Edges()

	e.mu.Lock()
	e.edges = edges
	e.dependents = buildDependents(edges)
	e.recomputeRanksLocked()
	e.mu.Unlock()

	e.logger.Debug("dependency graph rebuilt", "edges", len(edges))
}

// recomputeRanksLocked refreshes the topological ranks from the current
// registered set and edge snapshot. Callers must hold mu.
func (e *Executor) recomputeRanksLocked() {
	registered := make(map[string]struct{}, len(e.processors))
	for id := range e.processors {
		registered[id] = struct{}{}
	}
	e.ranks = computeRanks(registered, e.edges)
}

// onOutputChange is the registered callback for every output port of
// every registered processor. Its reaction depends on the phase:
// executing passes ignore it (the pass loop moves values itself, and
// reacting here would feed the pass back into itself), batches mark the
// changed node's affected set dirty, and an idle executor propagates the
// new value one hop immediately. Each delivered hop triggers the target
// port's own notifications, which is what keeps a reactive chain moving
// node by node outside passes.
func (e *Executor) onOutputChange(nodeID string, change domain.PortChange) {
	if e.closed.Load() {
		return
	}

	switch e.State() {
	case StateExecuting:
		e.logger.Debug("output change ignored during pass",
			"node", nodeID, "port", change.PortID)

	case StateBatching:
		e.markDirty(nodeID, change.PortID)

	default:
		e.propagate(nodeID, change.PortID)
	}
}

// markDirty adds the affected set of nodeID (itself plus every transitive
// dependent) to the dirty set. Merging into the sync.Map needs no lock of
// its own, so racing output notifications from different goroutines only
// share mu's read side for the traversal.
func (e *Executor) markDirty(nodeID, portID string) {
	e.mu.RLock()
	affected := affectedFrom(nodeID, e.dependents)
	e.mu.RUnlock()

	dirty := e.dirty.Load()
	for _, id := range affected {
		dirty.Store(id, struct{}{})
	}

	e.recordCounter("dataflow_dirty_marks_total", float64(len(affected)), map[string]string{"node": nodeID})
	e.logger.Debug("marked dirty", "node", nodeID, "port", portID, "affected", len(affected))
}

// PropagateFromPort pushes the current value of the given output port to
// every input port connected to it by an edge, one hop only. Each target
// port's own change notification continues the reactive chain. Unknown
// nodes and ports are silently skipped, and the call is refused while a
// pass is executing; batching does not block it.
func (e *Executor) PropagateFromPort(nodeID, portID string) bool {
	if e.closed.Load() {
		return false
	}
	if e.State() == StateExecuting {
		e.logger.Debug("propagation refused during pass", "node", nodeID, "port", portID)
		return false
	}
	return e.propagate(nodeID, portID)
}

// propagate performs the one-hop value push without phase checks. The
// pass loop uses it directly so values move rank to rank while reactive
// re-entry is suppressed.
func (e *Executor) propagate(nodeID, portID string) bool {
	type delivery struct {
		edge domain.Edge
		in   *domain.Port
	}

	e.mu.RLock()
	proc, ok := e.processors[nodeID]
	if !ok {
		e.mu.RUnlock()
		return false
	}
	out, ok := proc.OutputPort(portID)
	if !ok {
		e.mu.RUnlock()
		return false
	}
	value := out.Value()

	var deliveries []delivery
	for _, edge := range e.edges {
		if edge.SourceNode != nodeID || edge.SourcePort != portID {
			continue
		}
		target, ok := e.processors[edge.TargetNode]
		if !ok {
			// The edge references a node with no processor yet; ordinary
			// during interactive topology edits.
			continue
		}
		in, ok := target.InputPort(edge.TargetPort)
		if !ok {
			continue
		}
		deliveries = append(deliveries, delivery{edge: edge, in: in})
	}
	e.mu.RUnlock()

	// Deliver outside mu: each Set fires the target port's observers
	// synchronously, and those callbacks re-enter the executor.
	delivered := false
	for _, d := range deliveries {
		if err := d.in.Set(value); err != nil {
			// The engine is its own caller here, so a type-incompatible
			// edge cannot surface to anyone; it is logged and skipped.
			e.recordCounter("dataflow_type_errors_total", 1, map[string]string{"node": d.edge.TargetNode})
			e.logger.Error("propagation rejected by target port",
				"edge", d.edge.String(), "error", err)
			continue
		}
		delivered = true
	}
	if delivered {
		e.recordCounter("dataflow_propagations_total", float64(len(deliveries)),
			map[string]string{"node": nodeID, "port": portID})
	}
	return delivered
}

// ExecuteAll runs every registered processor exactly once in
// non-decreasing rank order, sentinel-ranked nodes last. It reports
// whether a pass ran; requests while another pass is executing or a batch
// is accumulating are silent no-ops, as is a pass over zero processors.
func (e *Executor) ExecuteAll(ctx context.Context) bool {
	if e.closed.Load() {
		return false
	}
	if !e.tryTransition(StateIdle, StateExecuting) {
		return false
	}

	e.mu.RLock()
	ids := make([]string, 0, len(e.processors))
	for id := range e.processors {
		ids = append(ids, id)
	}
	schedule := e.buildScheduleLocked(ids)
	e.mu.RUnlock()

	if len(schedule) == 0 {
		e.tryTransition(StateExecuting, StateIdle)
		return false
	}

	e.executePass(ctx, domain.TriggerExecuteAll, schedule)
	e.tryTransition(StateExecuting, StateIdle)
	return true
}

// ExecuteFrom runs nodeID and every registered transitive dependent in
// non-decreasing rank order. This is the incremental path for "exactly
// one upstream value changed". Node ids without a registered processor
// simply drop out of the schedule; if nothing remains the request is a
// silent no-op. Requests during a pass or batch are refused.
func (e *Executor) ExecuteFrom(ctx context.Context, nodeID string) bool {
	if e.closed.Load() {
		return false
	}
	if !e.tryTransition(StateIdle, StateExecuting) {
		return false
	}

	e.mu.RLock()
	affected := affectedFrom(nodeID, e.dependents)
	schedule := e.buildScheduleLocked(affected)
	e.mu.RUnlock()

	if len(schedule) == 0 {
		e.tryTransition(StateExecuting, StateIdle)
		return false
	}

	e.executePass(ctx, domain.TriggerExecuteFrom, schedule)
	e.tryTransition(StateExecuting, StateIdle)
	return true
}

// BeginBatch suspends immediate propagation and starts accumulating
// dirty nodes. It reports whether batching started; anything but an idle
// executor refuses.
func (e *Executor) BeginBatch() bool {
	if e.closed.Load() {
		return false
	}

	// The dirty set is already a fresh empty map whenever the executor is
	// idle: the constructor installs one and EndBatch swaps one in at every
	// flush. Touching it here would let a refused nested BeginBatch wipe
	// the active batch's marks.
	if !e.tryTransition(StateIdle, StateBatching) {
		return false
	}

	e.logger.Debug("batch started")
	return true
}

// EndBatch swaps the accumulated dirty set out atomically and executes
// each dirty node at most once in non-decreasing rank order. Node ids
// unregistered since they were marked are skipped. It reports whether a
// flush pass ran: an empty batch ends silently with no pass and no
// notifications, and a call without BeginBatch is a no-op.
func (e *Executor) EndBatch(ctx context.Context) bool {
	if e.closed.Load() {
		return false
	}
	if !e.tryTransition(StateBatching, StateExecuting) {
		return false
	}

	taken := e.dirty.Swap(&sync.Map{})
	var ids []string
	taken.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})

	e.mu.RLock()
	schedule := e.buildScheduleLocked(ids)
	e.mu.RUnlock()

	if len(schedule) == 0 {
		e.tryTransition(StateExecuting, StateIdle)
		e.logger.Debug("batch ended empty", "marked", len(ids))
		return false
	}

	e.executePass(ctx, domain.TriggerBatchFlush, schedule)
	e.tryTransition(StateExecuting, StateIdle)
	return true
}

// buildScheduleLocked resolves ids against the registry, drops the ones
// without a processor, and orders the rest by rank, sentinel last. Ranked
// nodes have unique ranks, so only sentinel-ranked nodes tie; their
// relative order follows the input and is deliberately unspecified.
// Callers must hold mu (read or write).
func (e *Executor) buildScheduleLocked(ids []string) []scheduleEntry {
	schedule := make([]scheduleEntry, 0, len(ids))
	for _, id := range ids {
		proc, ok := e.processors[id]
		if !ok {
			continue
		}
		rank, ok := e.ranks[id]
		if !ok {
			rank = RankUnordered
		}
		schedule = append(schedule, scheduleEntry{id: id, rank: rank, proc: proc})
	}
	sort.SliceStable(schedule, func(i, j int) bool {
		return schedule[i].rank < schedule[j].rank
	})
	return schedule
}

// executePass runs one execution pass over a prepared schedule: for each
// node in order it invokes Process, reports the outcome, and pushes every
// output one hop so downstream nodes observe fresh values when their turn
// comes. A failing processor never aborts the pass; the dataflow settles
// around it. Callers own the Executing phase for the duration.
func (e *Executor) executePass(ctx context.Context, trigger domain.PassTrigger, schedule []scheduleEntry) {
	info := domain.PassInfo{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
		Nodes:     len(schedule),
	}
	e.notifyStarted(ctx, info)
	e.logger.Debug("pass started", "pass", info.ID, "trigger", string(trigger), "nodes", info.Nodes)

	failed := 0
	for _, entry := range schedule {
		nodeStart := time.Now()
		err := entry.proc.Process(ctx)
		result := domain.NodeResult{
			NodeID:   entry.id,
			Rank:     entry.rank,
			Duration: time.Since(nodeStart),
			Err:      err,
		}
		if err != nil {
			failed++
			e.logger.Error("processor failed", "pass", info.ID, "node", entry.id, "error", err)
		}
		e.notifyNode(ctx, result)

		for portID := range entry.proc.OutputPorts() {
			e.propagate(entry.id, portID)
		}
	}

	e.notifyCompleted(ctx, domain.PassResult{
		PassInfo:  info,
		Duration:  time.Since(info.StartedAt),
		Processed: len(schedule),
		Failed:    failed,
	})
	e.logger.Debug("pass completed",
		"pass", info.ID, "processed", len(schedule), "failed", failed)
}

// Subscribe registers an observer for pass lifecycle notifications and
// returns an unsubscribe function; calling it more than once is harmless.
func (e *Executor) Subscribe(observer ports.ExecutionObserver) (unsubscribe func()) {
	if observer == nil {
		return func() {}
	}

	e.obsMu.Lock()
	id := e.nextObserverID
	e.nextObserverID++
	e.observers = append(e.observers, executionObserver{id: id, obs: observer})
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		for i, en := range e.observers {
			if en.id == id {
				e.observers = append(e.observers[:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// Close detaches the executor from the topology source, releases every
// output-port subscription it holds, and clears the registry and derived
// structures. Further requests on a closed executor are ignored. Close is
// idempotent and must not be called from inside a Process invocation.
func (e *Executor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	if e.topoUnsub != nil {
		e.topoUnsub()
	}

	e.mu.Lock()
	for nodeID := range e.outputUnsubs {
		for _, unsub := range e.outputUnsubs[nodeID] {
			unsub()
		}
	}
	e.processors = make(map[string]ports.Processor)
	e.outputUnsubs = make(map[string][]func())
	e.dependents = make(map[string][]string)
	e.edges = nil
	e.ranks = make(map[string]int)
	e.mu.Unlock()

	e.dirty.Store(&sync.Map{})

	e.obsMu.Lock()
	e.observers = nil
	e.obsMu.Unlock()

	e.logger.Info("executor closed")
	return nil
}

func (e *Executor) notifyStarted(ctx context.Context, info domain.PassInfo) {
	for _, en := range e.observerSnapshot() {
		en.obs.ExecutionStarted(ctx, info)
	}
}

func (e *Executor) notifyNode(ctx context.Context, result domain.NodeResult) {
	for _, en := range e.observerSnapshot() {
		en.obs.NodeProcessed(ctx, result)
	}
}

func (e *Executor) notifyCompleted(ctx context.Context, result domain.PassResult) {
	for _, en := range e.observerSnapshot() {
		en.obs.ExecutionCompleted(ctx, result)
	}
}

// observerSnapshot copies the observer list so notifications never run
// under obsMu; an observer may unsubscribe itself mid-notification.
func (e *Executor) observerSnapshot() []executionObserver {
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	snapshot := make([]executionObserver, len(e.observers))
	copy(snapshot, e.observers)
	return snapshot
}

func (e *Executor) recordCounter(metric string, value float64, labels map[string]string) {
	if e.metrics != nil {
		e.metrics.RecordCounter(metric, value, labels)
	}
}

func (e *Executor) recordGauge(metric string, value float64) {
	if e.metrics != nil {
		e.metrics.RecordGauge(metric, value, nil)
	}
}

// topologyObserver adapts the executor to ports.TopologyObserver without
// widening the executor's public method set beyond ports.Executor.
type topologyObserver struct {
	e *Executor
}

// EdgeAdded rebuilds the derived structures and immediately pushes the
// source port's current value across the new edge, so a target wired in
// after its upstream already holds a value does not need a manual
// trigger to receive it.
func (t topologyObserver) EdgeAdded(edge domain.Edge) {
	t.e.RebuildDependencyGraph()
	t.e.PropagateFromPort(edge.SourceNode, edge.SourcePort)
}

// EdgeRemoved rebuilds the derived structures.
func (t topologyObserver) EdgeRemoved(edge domain.Edge) {
	t.e.RebuildDependencyGraph()
}

// NodeRemoved unregisters the node's processor, if any. Edge removals
// for the node's connections arrive as separate EdgeRemoved
// notifications.
func (t topologyObserver) NodeRemoved(nodeID string) {
	t.e.UnregisterProcessor(nodeID)
}

// nopLogger is the default logger: it discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
