package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

// mockProcessor is a minimal Processor used to verify the interface is
// implementable without infrastructure support.
type mockProcessor struct {
	nodeID  string
	inputs  map[string]*domain.Port
	outputs map[string]*domain.Port
	runs    int
	err     error
}

func (m *mockProcessor) NodeID() string { return m.nodeID }

func (m *mockProcessor) InputPort(id string) (*domain.Port, bool) {
	p, ok := m.inputs[id]
	return p, ok
}

func (m *mockProcessor) OutputPort(id string) (*domain.Port, bool) {
	p, ok := m.outputs[id]
	return p, ok
}

func (m *mockProcessor) InputPorts() map[string]*domain.Port {
	out := make(map[string]*domain.Port, len(m.inputs))
	for k, v := range m.inputs {
		out[k] = v
	}
	return out
}

func (m *mockProcessor) OutputPorts() map[string]*domain.Port {
	out := make(map[string]*domain.Port, len(m.outputs))
	for k, v := range m.outputs {
		out[k] = v
	}
	return out
}

func (m *mockProcessor) Process(ctx context.Context) error {
	m.runs++
	return m.err
}

// TestProcessor_Interface verifies a bare-bones Processor implementation
// against the contract's lookup semantics.
func TestProcessor_Interface(t *testing.T) {
	var _ Processor = (*mockProcessor)(nil)

	in, err := domain.NewPort("value", cty.Number, cty.NumberIntVal(0))
	require.NoError(t, err, "NewPort() should succeed.")

	proc := &mockProcessor{
		nodeID: "node-a",
		inputs: map[string]*domain.Port{"value": in},
	}

	assert.Equal(t, "node-a", proc.NodeID(), "NodeID mismatch.")

	got, ok := proc.InputPort("value")
	assert.True(t, ok, "InputPort() should find a declared input.")
	assert.Same(t, in, got, "InputPort() should return the declared port.")

	_, ok = proc.InputPort("missing")
	assert.False(t, ok, "InputPort() should not find an undeclared input.")

	_, ok = proc.OutputPort("value")
	assert.False(t, ok, "OutputPort() should not find inputs.")

	require.NoError(t, proc.Process(context.Background()), "Process() should succeed.")
	assert.Equal(t, 1, proc.runs, "Process() should have run once.")
}

// TestConfigError verifies message formatting and unwrapping.
func TestConfigError(t *testing.T) {
	err := NewConfigError("engine.rate_limit", ErrConfigNotFound)

	assert.Equal(t, "config error: key=engine.rate_limit, err=configuration not found", err.Error(),
		"ConfigError message mismatch.")
	assert.True(t, errors.Is(err, ErrConfigNotFound), "ConfigError should unwrap to its cause.")
}
