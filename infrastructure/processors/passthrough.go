package processors

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.Processor = (*Passthrough)(nil)

// Conventional port ids for single-pair relay processors.
const (
	// PortIn is the input port of a passthrough node.
	PortIn = "in"

	// PortOut is the output port of a passthrough node.
	PortOut = "out"
)

// Passthrough relays its input to its output unchanged: Process copies
// the current value of "in" to "out". It is the relay node for fanning a
// value across topology seams and the simplest processor that exercises
// the full execute-propagate cycle.
type Passthrough struct {
	*Base
	in  *domain.Port
	out *domain.Port
}

// PassthroughConfig declares the value type relayed by a passthrough
// node.
type PassthroughConfig struct {
	// Type names the relayed value type: number, string, or bool.
	Type string `yaml:"type" json:"type" validate:"required,oneof=number string bool"`
}

// DefaultPassthroughConfig returns a numeric PassthroughConfig.
func DefaultPassthroughConfig() PassthroughConfig {
	return PassthroughConfig{Type: "number"}
}

// NewPassthrough creates a relay with input "in" and output "out" of the
// given type, both seeded with initial. Options are forwarded to the
// Base, so WithAutoExecute turns the relay into a self-driving repeater.
func NewPassthrough(nodeID string, typ cty.Type, initial cty.Value, opts ...BaseOption) (*Passthrough, error) {
	base, err := NewBase(nodeID, opts...)
	if err != nil {
		return nil, err
	}

	p := &Passthrough{Base: base}
	p.BindProcess(p.relay)

	if p.out, err = base.RegisterOutput(PortOut, typ, initial); err != nil {
		return nil, fmt.Errorf("passthrough %s: %w", nodeID, err)
	}
	// The output exists before the input so an auto-executed relay never
	// runs against a half-built processor.
	if p.in, err = base.RegisterInput(PortIn, typ, initial); err != nil {
		return nil, fmt.Errorf("passthrough %s: %w", nodeID, err)
	}
	return p, nil
}

// relay copies the input value to the output port.
func (p *Passthrough) relay(context.Context) error {
	return p.out.Set(p.in.Value())
}

// NewPassthroughFromConfig creates a Passthrough from a configuration
// map.
func NewPassthroughFromConfig(nodeID string, config map[string]any) (ports.Processor, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultPassthroughConfig()
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
	return NewPassthrough(nodeID, typ, zeroValue(typ))
}
