package processors

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

func TestNewSource(t *testing.T) {
	source, err := NewSource("sensor", "out", cty.Number, cty.NumberIntVal(3))
	require.NoError(t, err)

	assert.Equal(t, "sensor", source.NodeID())
	assert.Empty(t, source.InputPorts())
	require.Len(t, source.OutputPorts(), 1)
	assert.True(t, source.Port().Value().RawEquals(cty.NumberIntVal(3)))

	_, err = NewSource("", "out", cty.Number, cty.Zero)
	assert.ErrorIs(t, err, ErrEmptyNodeID)
}

func TestSource_SetValue(t *testing.T) {
	source, err := NewSource("sensor", "out", cty.Number, cty.Zero)
	require.NoError(t, err)

	var changes atomic.Int32
	source.Port().OnChange(func(change domain.PortChange) {
		changes.Add(1)
		assert.True(t, change.New.RawEquals(cty.NumberIntVal(42)))
	})

	require.NoError(t, source.SetValue(cty.NumberIntVal(42)))
	assert.Equal(t, int32(1), changes.Load())
	assert.True(t, source.Port().Value().RawEquals(cty.NumberIntVal(42)))

	// Writing the same value again must not notify.
	require.NoError(t, source.SetValue(cty.NumberIntVal(42)))
	assert.Equal(t, int32(1), changes.Load())
}

func TestSource_SetUntyped(t *testing.T) {
	source, err := NewSource("sensor", "out", cty.Number, cty.Zero)
	require.NoError(t, err)

	require.NoError(t, source.SetUntyped(2.5))
	got, _ := source.Port().Value().AsBigFloat().Float64()
	assert.Equal(t, 2.5, got)

	// Values with no cty representation are rejected.
	assert.Error(t, source.SetUntyped(func() {}))
}

func TestSource_ProcessIsNoOp(t *testing.T) {
	source, err := NewSource("sensor", "out", cty.Number, cty.NumberIntVal(9))
	require.NoError(t, err)

	var changes atomic.Int32
	source.Port().OnChange(func(domain.PortChange) { changes.Add(1) })

	require.NoError(t, source.Process(context.Background()))
	assert.Equal(t, int32(0), changes.Load())
	assert.True(t, source.Port().Value().RawEquals(cty.NumberIntVal(9)))
}

func TestNewSourceFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		wantErr  string
		wantPort string
		want     cty.Value
	}{
		{
			name:     "defaults to numeric port named out",
			config:   map[string]any{},
			wantPort: "out",
			want:     cty.Zero,
		},
		{
			name: "custom port with initial value",
			config: map[string]any{
				"port":    "reading",
				"type":    "number",
				"initial": 7.5,
			},
			wantPort: "reading",
			want:     cty.NumberFloatVal(7.5),
		},
		{
			name: "string port",
			config: map[string]any{
				"port":    "label",
				"type":    "string",
				"initial": "boot",
			},
			wantPort: "label",
			want:     cty.StringVal("boot"),
		},
		{
			name: "bool port defaults to false",
			config: map[string]any{
				"port": "armed",
				"type": "bool",
			},
			wantPort: "armed",
			want:     cty.False,
		},
		{
			name: "rejects unsupported type name",
			config: map[string]any{
				"port": "out",
				"type": "float",
			},
			wantErr: "configuration validation failed",
		},
		{
			name: "rejects initial value of the wrong type",
			config: map[string]any{
				"port":    "out",
				"type":    "number",
				"initial": "not-a-number",
			},
			wantErr: "cannot accept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := NewSourceFromConfig("sensor", tt.config)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			source, ok := proc.(*Source)
			require.True(t, ok)
			port, ok := source.OutputPort(tt.wantPort)
			require.True(t, ok)
			assert.True(t, port.Value().RawEquals(tt.want),
				"got %s, want %s", port.Value().GoString(), tt.want.GoString())
		})
	}
}
