package processors

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.Processor = (*Source)(nil)

// Source is the externally driven origin of a dataflow graph: a single
// output port and no inputs. Hosts write it from UI events or control
// code through SetValue/SetUntyped, and the committed change rides the
// normal reactive propagation into downstream nodes. Process is a no-op;
// a source never computes, it only holds what was last written.
type Source struct {
	*Base
	out *domain.Port
}

// SourceConfig declares the output port of a source node.
type SourceConfig struct {
	// Port is the output port id.
	Port string `yaml:"port" json:"port" validate:"required"`

	// Type names the port's value type: number, string, or bool.
	Type string `yaml:"type" json:"type" validate:"required,oneof=number string bool"`

	// Initial optionally seeds the port; the type's zero value is used
	// when absent.
	Initial any `yaml:"initial" json:"initial"`
}

// DefaultSourceConfig returns a SourceConfig for a numeric port named
// "out".
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{Port: "out", Type: "number"}
}

// NewSource creates a source whose output port has the given id, type,
// and initial value.
func NewSource(nodeID, portID string, typ cty.Type, initial cty.Value) (*Source, error) {
	base, err := NewBase(nodeID)
	if err != nil {
		return nil, err
	}
	out, err := base.RegisterOutput(portID, typ, initial)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", nodeID, err)
	}
	return &Source{Base: base, out: out}, nil
}

// Port returns the source's output port.
func (s *Source) Port() *domain.Port { return s.out }

// SetValue writes a typed value to the output port; the committed change
// drives downstream propagation.
func (s *Source) SetValue(v cty.Value) error { return s.out.Set(v) }

// SetUntyped writes a native Go value to the output port.
func (s *Source) SetUntyped(v any) error { return s.out.SetUntyped(v) }

// NewSourceFromConfig creates a Source from a configuration map.
// This is the boundary adapter for topology-file construction.
func NewSourceFromConfig(nodeID string, config map[string]any) (ports.Processor, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultSourceConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	typ, err := parseTypeName(cfg.Type)
	if err != nil {
		return nil, err
	}
	initial := zeroValue(typ)
	if cfg.Initial != nil {
		lifted, err := domain.FromGo(cfg.Initial)
		if err != nil {
			return nil, fmt.Errorf("initial value: %w", err)
		}
		initial = lifted
	}

	return NewSource(nodeID, cfg.Port, typ, initial)
}
