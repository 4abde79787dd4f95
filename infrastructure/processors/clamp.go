package processors

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.Processor = (*Clamp)(nil)

// PortValue is the input port id of a clamp node.
const PortValue = "value"

// Clamp limits its numeric input "value" to the configured [Min, Max]
// range and writes the bounded value to "result". Typical in front of
// display or actuator sinks where out-of-range values must never escape.
type Clamp struct {
	*Base
	config ClampConfig
	value  *domain.Port
	result *domain.Port

	min cty.Value
	max cty.Value
}

// ClampConfig sets the inclusive bounds applied by a clamp node.
// Max must not be below Min.
type ClampConfig struct {
	// Min is the inclusive lower bound.
	Min float64 `yaml:"min" json:"min"`

	// Max is the inclusive upper bound.
	Max float64 `yaml:"max" json:"max" validate:"gtefield=Min"`
}

// DefaultClampConfig returns a ClampConfig bounding to the unit interval.
func DefaultClampConfig() ClampConfig {
	return ClampConfig{Min: 0, Max: 1}
}

// NewClamp creates a clamp node with validated bounds. The input port
// starts at the lower bound so the output is in range from the first
// pass.
func NewClamp(nodeID string, config ClampConfig, opts ...BaseOption) (*Clamp, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	base, err := NewBase(nodeID, opts...)
	if err != nil {
		return nil, err
	}

	c := &Clamp{
		Base:   base,
		config: config,
		min:    cty.NumberFloatVal(config.Min),
		max:    cty.NumberFloatVal(config.Max),
	}
	c.BindProcess(c.compute)

	if c.result, err = base.RegisterOutput(PortResult, cty.Number, c.min); err != nil {
		return nil, fmt.Errorf("clamp %s: %w", nodeID, err)
	}
	if c.value, err = base.RegisterInput(PortValue, cty.Number, c.min); err != nil {
		return nil, fmt.Errorf("clamp %s: %w", nodeID, err)
	}
	return c, nil
}

// compute writes the bounded input value to the result port.
func (c *Clamp) compute(context.Context) error {
	v, err := requireNumber(PortValue, c.value.Value())
	if err != nil {
		return fmt.Errorf("clamp %s: %w", c.NodeID(), err)
	}

	switch {
	case v.LessThan(c.min).True():
		v = c.min
	case v.GreaterThan(c.max).True():
		v = c.max
	}
	return c.result.Set(v)
}

// NewClampFromConfig creates a Clamp from a configuration map.
func NewClampFromConfig(nodeID string, config map[string]any) (ports.Processor, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	cfg := DefaultClampConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewClamp(nodeID, cfg)
}
