// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
//
// The package is named for the hexagonal "ports and adapters" convention.
// It is unrelated to domain.Port, the dataflow value cell.
package ports

import (
	"context"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

// Processor is the fundamental computational unit of the dataflow graph.
// Each Processor owns a set of named input and output ports, reads its
// inputs, and writes derived values to its outputs. Processors are wired
// together exclusively through port connections maintained by the external
// topology; they never reference one another directly.
type Processor interface {
	// NodeID returns the unique identifier of the node this processor
	// backs. It must remain constant for the processor's lifetime and be
	// unique within the executor it is registered with.
	NodeID() string

	// InputPort returns the input port with the given id, or false if the
	// processor declares no such input.
	InputPort(id string) (*domain.Port, bool)

	// OutputPort returns the output port with the given id, or false if
	// the processor declares no such output.
	OutputPort(id string) (*domain.Port, bool)

	// InputPorts returns the processor's input ports keyed by port id.
	// The returned map is a snapshot; mutating it does not affect the
	// processor.
	InputPorts() map[string]*domain.Port

	// OutputPorts returns the processor's output ports keyed by port id.
	// The returned map is a snapshot; mutating it does not affect the
	// processor.
	OutputPorts() map[string]*domain.Port

	// Process reads the current input values and writes derived values to
	// the output ports. It runs synchronously on the caller's goroutine.
	// A returned error marks the node's computation as failed for the
	// current pass; it never aborts the pass itself.
	//
	// Process must tolerate being invoked with any combination of input
	// values, including ones it has not seen before: the dataflow settles
	// by repeated execution, not by preconditions.
	Process(ctx context.Context) error
}

// ProcessorFactory creates a processor instance for one node from its
// declared type-specific configuration. Factories are registered with a
// ProcessorRegistry under a type name and invoked by the topology loader.
type ProcessorFactory func(nodeID string, config map[string]any) (Processor, error)

// ProcessorRegistry manufactures processors by type name.
// Implementations come pre-loaded with the built-in processor library and
// accept additional factories at runtime.
type ProcessorRegistry interface {
	// CreateProcessor builds a processor of the given type for the given
	// node id. The config map carries the node's type-specific parameters
	// and is interpreted by the factory.
	CreateProcessor(processorType, nodeID string, config map[string]any) (Processor, error)

	// RegisterFactory adds or replaces the factory for a processor type,
	// allowing custom node types at runtime.
	RegisterFactory(processorType string, factory ProcessorFactory) error

	// SupportedTypes returns the names of every registered processor type.
	// It is used for validation, diagnostics, and "did you mean" hints.
	SupportedTypes() []string
}
