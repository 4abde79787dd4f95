package processors

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.Processor = (*Sink)(nil)

// ValueFunc receives a value that arrived on one of a sink's input ports.
// It runs synchronously on the goroutine that committed the write, so it
// must not block.
type ValueFunc func(portID string, value cty.Value)

// Sink is the terminal specialization: input ports only. Instead of
// writing outputs it raises a value-received callback, which is how
// displays and other host surfaces observe the graph. The callback fires
// on every committed input change, and Process re-emits every current
// input value so a pass refreshes the surface even when nothing changed.
type Sink struct {
	*Base
	onValue ValueFunc
}

// SinkPortConfig declares one input port of a sink node.
type SinkPortConfig struct {
	// Name is the input port id.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Type names the port's value type: number, string, or bool.
	Type string `yaml:"type" json:"type" validate:"required,oneof=number string bool"`
}

// SinkConfig declares the input ports of a sink node.
type SinkConfig struct {
	// Inputs lists the sink's input ports; at least one is required.
	Inputs []SinkPortConfig `yaml:"inputs" json:"inputs" validate:"required,min=1,dive"`
}

// DefaultSinkConfig returns a SinkConfig with a single numeric input
// named "value".
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{Inputs: []SinkPortConfig{{Name: "value", Type: "number"}}}
}

// NewSink creates a sink with no ports; declare them with AddInput. A nil
// onValue is allowed: the sink then only retains values for reading.
func NewSink(nodeID string, onValue ValueFunc) (*Sink, error) {
	base, err := NewBase(nodeID)
	if err != nil {
		return nil, err
	}
	s := &Sink{Base: base, onValue: onValue}
	s.BindProcess(s.emit)
	return s, nil
}

// AddInput declares an input port and subscribes the value-received
// callback to it.
func (s *Sink) AddInput(portID string, typ cty.Type, initial cty.Value) error {
	port, err := s.RegisterInput(portID, typ, initial)
	if err != nil {
		return fmt.Errorf("sink %s: %w", s.NodeID(), err)
	}
	if s.onValue != nil {
		port.OnChange(func(change domain.PortChange) {
			s.onValue(change.PortID, change.New)
		})
	}
	return nil
}

// Value returns the current value of the given input port.
func (s *Sink) Value(portID string) (cty.Value, bool) {
	port, ok := s.InputPort(portID)
	if !ok {
		return cty.NilVal, false
	}
	return port.Value(), true
}

// emit re-raises the value-received callback for every input port.
func (s *Sink) emit(context.Context) error {
	if s.onValue == nil {
		return nil
	}
	for portID, port := range s.InputPorts() {
		s.onValue(portID, port.Value())
	}
	return nil
}

// NewSinkFromConfig creates a Sink from a configuration map. Loader-built
// sinks have no callback; hosts read them through Value after a pass.
func NewSinkFromConfig(nodeID string, config map[string]any) (ports.Processor, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultSinkConfig()
	if len(config) > 0 {
		cfg = SinkConfig{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	sink, err := NewSink(nodeID, nil)
	if err != nil {
		return nil, err
	}
	for _, in := range cfg.Inputs {
		typ, err := parseTypeName(in.Type)
		if err != nil {
			return nil, err
		}
		if err := sink.AddInput(in.Name, typ, zeroValue(typ)); err != nil {
			return nil, err
		}
	}
	return sink, nil
}
