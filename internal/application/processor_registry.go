package application

import (
	"fmt"
	"sync"

	"github.com/nodecanvas/go-dataflow/infrastructure/processors"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.ProcessorRegistry = (*DefaultProcessorRegistry)(nil)

// DefaultProcessorRegistry implements the ProcessorRegistry interface,
// manufacturing processors from the type names topology files reference.
// It comes pre-loaded with the built-in processor library and accepts
// additional factories for custom node types at runtime.
type DefaultProcessorRegistry struct {
	// factories maps processor type names to their factory functions.
	factories map[string]ports.ProcessorFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultProcessorRegistry creates a registry with the built-in
// processor types pre-registered: source, sink, passthrough, arithmetic,
// and clamp.
func NewDefaultProcessorRegistry() *DefaultProcessorRegistry {
	registry := &DefaultProcessorRegistry{
		factories: make(map[string]ports.ProcessorFactory),
	}
	registry.registerBuiltinFactories()
	return registry
}

// registerBuiltinFactories registers the standard node types provided by
// the processor library.
func (r *DefaultProcessorRegistry) registerBuiltinFactories() {
	r.factories[processors.TypeSource] = processors.NewSourceFromConfig
	r.factories[processors.TypeSink] = processors.NewSinkFromConfig
	r.factories[processors.TypePassthrough] = processors.NewPassthroughFromConfig
	r.factories[processors.TypeArithmetic] = processors.NewArithmeticFromConfig
	r.factories[processors.TypeClamp] = processors.NewClampFromConfig
}

// CreateProcessor builds a processor of the given type for the given
// node id, delegating to the registered factory.
func (r *DefaultProcessorRegistry) CreateProcessor(
	processorType string,
	nodeID string,
	config map[string]any,
) (ports.Processor, error) {
	r.mu.RLock()
	factory, exists := r.factories[processorType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownProcessorType, processorType)
	}
	if nodeID == "" {
		return nil, ports.ErrEmptyNodeID
	}
	if config == nil {
		config = make(map[string]any)
	}

	processor, err := factory(nodeID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor %s of type %s: %w", nodeID, processorType, err)
	}
	return processor, nil
}

// RegisterFactory adds or replaces the factory for a processor type,
// allowing custom node types at runtime.
func (r *DefaultProcessorRegistry) RegisterFactory(
	processorType string,
	factory ports.ProcessorFactory,
) error {
	if processorType == "" {
		return ports.ErrEmptyProcessorType
	}
	if factory == nil {
		return ports.ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[processorType] = factory
	return nil
}

// SupportedTypes returns the names of every registered processor type.
func (r *DefaultProcessorRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for processorType := range r.factories {
		types = append(types, processorType)
	}
	return types
}
