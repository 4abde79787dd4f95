package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

// setOperands writes both operand ports of an arithmetic node.
func setOperands(t *testing.T, a *Arithmetic, left, right cty.Value) {
	t.Helper()
	portA, ok := a.InputPort(PortA)
	require.True(t, ok)
	portB, ok := a.InputPort(PortB)
	require.True(t, ok)
	require.NoError(t, portA.Set(left))
	require.NoError(t, portB.Set(right))
}

// resultOf runs the node and returns its result port value.
func resultOf(t *testing.T, a *Arithmetic) cty.Value {
	t.Helper()
	require.NoError(t, a.Process(context.Background()))
	port, ok := a.OutputPort(PortResult)
	require.True(t, ok)
	return port.Value()
}

func TestArithmetic_Compute(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		a    cty.Value
		b    cty.Value
		want cty.Value
	}{
		{
			name: "addition",
			op:   OpAdd,
			a:    cty.NumberIntVal(2),
			b:    cty.NumberIntVal(3),
			want: cty.NumberIntVal(5),
		},
		{
			name: "subtraction below zero",
			op:   OpSubtract,
			a:    cty.NumberIntVal(2),
			b:    cty.NumberIntVal(7),
			want: cty.NumberIntVal(-5),
		},
		{
			name: "multiplication with fraction",
			op:   OpMultiply,
			a:    cty.NumberFloatVal(7.5),
			b:    cty.NumberIntVal(4),
			want: cty.NumberIntVal(30),
		},
		{
			name: "division",
			op:   OpDivide,
			a:    cty.NumberIntVal(9),
			b:    cty.NumberIntVal(4),
			want: cty.NumberFloatVal(2.25),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewArithmetic("calc", ArithmeticConfig{Op: tt.op})
			require.NoError(t, err)
			setOperands(t, node, tt.a, tt.b)

			got := resultOf(t, node)
			assert.True(t, got.Equals(tt.want).True(),
				"got %s, want %s", got.GoString(), tt.want.GoString())
		})
	}
}

// TestArithmetic_DivideByZero verifies that a zero divisor fails the
// node's computation and leaves the previous result untouched, rather
// than panicking or writing a placeholder.
func TestArithmetic_DivideByZero(t *testing.T) {
	node, err := NewArithmetic("calc", ArithmeticConfig{Op: OpDivide})
	require.NoError(t, err)

	setOperands(t, node, cty.NumberIntVal(10), cty.NumberIntVal(2))
	got := resultOf(t, node)
	require.True(t, got.Equals(cty.NumberIntVal(5)).True())

	portB, _ := node.InputPort(PortB)
	require.NoError(t, portB.Set(cty.Zero))

	err = node.Process(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivideByZero)

	result, _ := node.OutputPort(PortResult)
	assert.True(t, result.Value().Equals(cty.NumberIntVal(5)).True())
}

func TestArithmetic_ConfigValidation(t *testing.T) {
	_, err := NewArithmetic("calc", ArithmeticConfig{Op: "modulo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	_, err = NewArithmetic("calc", ArithmeticConfig{})
	require.Error(t, err)
}

func TestArithmetic_UnchangedResultDoesNotNotify(t *testing.T) {
	node, err := NewArithmetic("calc", ArithmeticConfig{Op: OpAdd})
	require.NoError(t, err)
	setOperands(t, node, cty.NumberIntVal(1), cty.NumberIntVal(2))

	result, _ := node.OutputPort(PortResult)
	var notifications int
	result.OnChange(func(domain.PortChange) { notifications++ })

	require.NoError(t, node.Process(context.Background()))
	require.NoError(t, node.Process(context.Background()))

	// The second pass recomputes 3 and writes the same value; the port
	// swallows it, so downstream would not re-fire.
	assert.Equal(t, 1, notifications)
}

func TestNewArithmeticFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		a, b    int64
		want    int64
		wantErr string
	}{
		{
			name:   "defaults to addition",
			config: map[string]any{},
			a:      4, b: 6,
			want: 10,
		},
		{
			name:   "configured subtraction",
			config: map[string]any{"op": "subtract"},
			a:      10, b: 4,
			want: 6,
		},
		{
			name:    "rejects unknown operation",
			config:  map[string]any{"op": "xor"},
			wantErr: "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := NewArithmeticFromConfig("calc", tt.config)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			node, ok := proc.(*Arithmetic)
			require.True(t, ok)
			setOperands(t, node, cty.NumberIntVal(tt.a), cty.NumberIntVal(tt.b))
			got := resultOf(t, node)
			assert.True(t, got.Equals(cty.NumberIntVal(tt.want)).True())
		})
	}
}
