package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestClamp_Compute(t *testing.T) {
	tests := []struct {
		name   string
		config ClampConfig
		input  cty.Value
		want   cty.Value
	}{
		{
			name:   "passes value inside the range",
			config: ClampConfig{Min: 0, Max: 100},
			input:  cty.NumberIntVal(42),
			want:   cty.NumberIntVal(42),
		},
		{
			name:   "clamps to the lower bound",
			config: ClampConfig{Min: 0, Max: 100},
			input:  cty.NumberIntVal(-7),
			want:   cty.Zero,
		},
		{
			name:   "clamps to the upper bound",
			config: ClampConfig{Min: 0, Max: 100},
			input:  cty.NumberIntVal(250),
			want:   cty.NumberIntVal(100),
		},
		{
			name:   "boundary values pass unchanged",
			config: ClampConfig{Min: -1, Max: 1},
			input:  cty.NumberIntVal(-1),
			want:   cty.NumberIntVal(-1),
		},
		{
			name:   "degenerate range pins everything",
			config: ClampConfig{Min: 5, Max: 5},
			input:  cty.NumberIntVal(99),
			want:   cty.NumberIntVal(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewClamp("limiter", tt.config)
			require.NoError(t, err)

			value, ok := node.InputPort(PortValue)
			require.True(t, ok)
			require.NoError(t, value.Set(tt.input))
			require.NoError(t, node.Process(context.Background()))

			result, ok := node.OutputPort(PortResult)
			require.True(t, ok)
			assert.True(t, result.Value().Equals(tt.want).True(),
				"got %s, want %s", result.Value().GoString(), tt.want.GoString())
		})
	}
}

func TestClamp_ConfigValidation(t *testing.T) {
	_, err := NewClamp("limiter", ClampConfig{Min: 10, Max: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestClamp_InitialOutputInRange(t *testing.T) {
	node, err := NewClamp("limiter", ClampConfig{Min: 3, Max: 9})
	require.NoError(t, err)

	result, ok := node.OutputPort(PortResult)
	require.True(t, ok)
	assert.True(t, result.Value().Equals(cty.NumberIntVal(3)).True())
}

func TestNewClampFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		input  int64
		want   int64
	}{
		{
			name:   "defaults to the unit interval",
			config: map[string]any{},
			input:  3,
			want:   1,
		},
		{
			name:   "custom bounds",
			config: map[string]any{"min": -10, "max": 10},
			input:  -25,
			want:   -10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := NewClampFromConfig("limiter", tt.config)
			require.NoError(t, err)

			node, ok := proc.(*Clamp)
			require.True(t, ok)
			value, _ := node.InputPort(PortValue)
			require.NoError(t, value.Set(cty.NumberIntVal(tt.input)))
			require.NoError(t, node.Process(context.Background()))

			result, _ := node.OutputPort(PortResult)
			assert.True(t, result.Value().Equals(cty.NumberIntVal(tt.want)).True())
		})
	}
}

func TestNewClampFromConfig_InvalidBounds(t *testing.T) {
	_, err := NewClampFromConfig("limiter", map[string]any{"min": 9, "max": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
