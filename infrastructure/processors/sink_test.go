package processors

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// valueRecorder collects sink callback invocations for assertions.
type valueRecorder struct {
	mu       sync.Mutex
	received []string
	last     map[string]cty.Value
}

func newValueRecorder() *valueRecorder {
	return &valueRecorder{last: make(map[string]cty.Value)}
}

func (r *valueRecorder) callback(portID string, value cty.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, portID)
	r.last[portID] = value
}

func (r *valueRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func (r *valueRecorder) lastValue(portID string) (cty.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.last[portID]
	return v, ok
}

func TestSink_CallbackOnChange(t *testing.T) {
	rec := newValueRecorder()
	sink, err := NewSink("display", rec.callback)
	require.NoError(t, err)
	require.NoError(t, sink.AddInput("reading", cty.Number, cty.Zero))

	port, ok := sink.InputPort("reading")
	require.True(t, ok)

	require.NoError(t, port.Set(cty.NumberIntVal(21)))
	assert.Equal(t, 1, rec.count())
	got, ok := rec.lastValue("reading")
	require.True(t, ok)
	assert.True(t, got.RawEquals(cty.NumberIntVal(21)))

	// An unchanged write commits nothing and raises nothing.
	require.NoError(t, port.Set(cty.NumberIntVal(21)))
	assert.Equal(t, 1, rec.count())
}

// TestSink_ProcessReemits verifies that an execution pass refreshes the
// host surface: Process re-raises the callback for every input port even
// when no value changed.
func TestSink_ProcessReemits(t *testing.T) {
	rec := newValueRecorder()
	sink, err := NewSink("display", rec.callback)
	require.NoError(t, err)
	require.NoError(t, sink.AddInput("a", cty.Number, cty.NumberIntVal(1)))
	require.NoError(t, sink.AddInput("b", cty.String, cty.StringVal("idle")))

	require.NoError(t, sink.Process(context.Background()))

	assert.Equal(t, 2, rec.count())
	a, ok := rec.lastValue("a")
	require.True(t, ok)
	assert.True(t, a.RawEquals(cty.NumberIntVal(1)))
	b, ok := rec.lastValue("b")
	require.True(t, ok)
	assert.True(t, b.RawEquals(cty.StringVal("idle")))
}

func TestSink_NilCallback(t *testing.T) {
	sink, err := NewSink("display", nil)
	require.NoError(t, err)
	require.NoError(t, sink.AddInput("reading", cty.Number, cty.Zero))

	port, _ := sink.InputPort("reading")
	require.NoError(t, port.Set(cty.NumberIntVal(4)))
	require.NoError(t, sink.Process(context.Background()))

	// Values are still retained for polling through Value.
	got, ok := sink.Value("reading")
	require.True(t, ok)
	assert.True(t, got.RawEquals(cty.NumberIntVal(4)))
}

func TestSink_Value(t *testing.T) {
	sink, err := NewSink("display", nil)
	require.NoError(t, err)
	require.NoError(t, sink.AddInput("reading", cty.Number, cty.NumberIntVal(8)))

	got, ok := sink.Value("reading")
	require.True(t, ok)
	assert.True(t, got.RawEquals(cty.NumberIntVal(8)))

	_, ok = sink.Value("missing")
	assert.False(t, ok)
}

func TestSink_AddInput_Duplicate(t *testing.T) {
	sink, err := NewSink("display", nil)
	require.NoError(t, err)
	require.NoError(t, sink.AddInput("reading", cty.Number, cty.Zero))

	err = sink.AddInput("reading", cty.Number, cty.Zero)
	assert.ErrorIs(t, err, ErrDuplicatePort)
}

func TestNewSinkFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		wantErr   string
		wantPorts []string
	}{
		{
			name: "builds declared inputs",
			config: map[string]any{
				"inputs": []map[string]any{
					{"name": "value", "type": "number"},
					{"name": "label", "type": "string"},
				},
			},
			wantPorts: []string{"value", "label"},
		},
		{
			name:      "empty config falls back to a single numeric input",
			config:    map[string]any{},
			wantPorts: []string{"value"},
		},
		{
			name:    "rejects explicitly empty inputs",
			config:  map[string]any{"inputs": []any{}},
			wantErr: "configuration validation failed",
		},
		{
			name: "rejects unknown port type",
			config: map[string]any{
				"inputs": []map[string]any{
					{"name": "value", "type": "decimal"},
				},
			},
			wantErr: "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := NewSinkFromConfig("display", tt.config)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			for _, portID := range tt.wantPorts {
				_, ok := proc.InputPort(portID)
				assert.True(t, ok, "missing input port %s", portID)
			}
			assert.Len(t, proc.InputPorts(), len(tt.wantPorts))
		})
	}
}
