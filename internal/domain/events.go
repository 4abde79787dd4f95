package domain

import "time"

// PassTrigger identifies what started an execution pass.
type PassTrigger string

// Triggers for execution passes.
const (
	// TriggerExecuteAll marks a full-graph execution request.
	TriggerExecuteAll PassTrigger = "execute_all"

	// TriggerExecuteFrom marks a partial execution seeded at one node.
	TriggerExecuteFrom PassTrigger = "execute_from"

	// TriggerBatchFlush marks a pass draining the accumulated dirty set.
	TriggerBatchFlush PassTrigger = "batch_flush"
)

// PassInfo describes an execution pass at the moment it starts.
type PassInfo struct {
	// ID uniquely identifies the pass for correlation across
	// notifications, logs, traces, and metrics.
	ID string

	// Trigger records what kind of request started the pass.
	Trigger PassTrigger

	// StartedAt is the wall-clock start time of the pass.
	StartedAt time.Time

	// Nodes is the number of processors scheduled for this pass.
	Nodes int
}

// NodeResult describes the outcome of a single processor execution
// within a pass.
type NodeResult struct {
	// NodeID identifies the processor that ran.
	NodeID string

	// Rank is the processor's position in the topological order at the
	// time of the pass.
	Rank int

	// Duration is how long the processor's Process call took.
	Duration time.Duration

	// Err is the error returned by Process, or nil. A non-nil Err never
	// aborts the pass; the remaining processors still run.
	Err error
}

// PassResult describes a completed execution pass.
type PassResult struct {
	// PassInfo echoes the starting notification's pass description.
	PassInfo

	// Duration is the total wall-clock time of the pass.
	Duration time.Duration

	// Processed counts processors that ran, including ones whose Process
	// returned an error.
	Processed int

	// Failed counts processors whose Process returned an error.
	Failed int
}
