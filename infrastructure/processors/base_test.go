package processors

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

func TestNewBase(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  string
		wantErr error
	}{
		{
			name:   "creates base with valid id",
			nodeID: "node-1",
		},
		{
			name:    "rejects empty node id",
			nodeID:  "",
			wantErr: ErrEmptyNodeID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := NewBase(tt.nodeID)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nodeID, base.NodeID())
			assert.Empty(t, base.InputPorts())
			assert.Empty(t, base.OutputPorts())
		})
	}
}

func TestBase_RegisterPorts(t *testing.T) {
	base, err := NewBase("node")
	require.NoError(t, err)

	in, err := base.RegisterInput("in", cty.Number, cty.Zero)
	require.NoError(t, err)
	out, err := base.RegisterOutput("out", cty.String, cty.StringVal(""))
	require.NoError(t, err)

	gotIn, ok := base.InputPort("in")
	require.True(t, ok)
	assert.Same(t, in, gotIn)

	gotOut, ok := base.OutputPort("out")
	require.True(t, ok)
	assert.Same(t, out, gotOut)

	// The same id may exist on both sides, but not twice on one side.
	_, err = base.RegisterOutput("in", cty.Number, cty.Zero)
	require.NoError(t, err)
	_, err = base.RegisterInput("in", cty.Number, cty.Zero)
	assert.ErrorIs(t, err, ErrDuplicatePort)
	_, err = base.RegisterOutput("out", cty.String, cty.StringVal(""))
	assert.ErrorIs(t, err, ErrDuplicatePort)

	_, ok = base.InputPort("missing")
	assert.False(t, ok)
}

func TestBase_PortSnapshots(t *testing.T) {
	base, err := NewBase("node")
	require.NoError(t, err)
	_, err = base.RegisterInput("in", cty.Number, cty.Zero)
	require.NoError(t, err)

	snapshot := base.InputPorts()
	require.Len(t, snapshot, 1)

	// Mutating the snapshot must not affect the processor.
	delete(snapshot, "in")
	_, ok := base.InputPort("in")
	assert.True(t, ok)
}

func TestBase_Process(t *testing.T) {
	t.Run("no bound function is a no-op", func(t *testing.T) {
		base, err := NewBase("node")
		require.NoError(t, err)
		assert.NoError(t, base.Process(context.Background()))
	})

	t.Run("invokes bound function", func(t *testing.T) {
		base, err := NewBase("node")
		require.NoError(t, err)

		var calls atomic.Int32
		base.BindProcess(func(context.Context) error {
			calls.Add(1)
			return nil
		})

		require.NoError(t, base.Process(context.Background()))
		require.NoError(t, base.Process(context.Background()))
		assert.Equal(t, int32(2), calls.Load())
	})
}

// TestBase_ReentrancyGuard verifies that a Process call arriving while the
// compute function is already running is dropped rather than queued or
// recursed into. This is what terminates synchronous reactive chains when
// the topology contains a cycle.
func TestBase_ReentrancyGuard(t *testing.T) {
	base, err := NewBase("node")
	require.NoError(t, err)

	var calls atomic.Int32
	base.BindProcess(func(ctx context.Context) error {
		calls.Add(1)
		// Re-enter from within the compute function; the guard must make
		// this a silent no-op instead of infinite recursion.
		return base.Process(ctx)
	})

	require.NoError(t, base.Process(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBase_ReentrancyGuard_Concurrent(t *testing.T) {
	base, err := NewBase("node")
	require.NoError(t, err)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	base.BindProcess(func(context.Context) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = base.Process(context.Background())
	}()

	<-entered
	// The overlapping call drops and reports success without invoking the
	// compute function a second time.
	assert.NoError(t, base.Process(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	wg.Wait()
}

func TestBase_AutoExecute(t *testing.T) {
	base, err := NewBase("node", WithAutoExecute())
	require.NoError(t, err)

	var calls atomic.Int32
	base.BindProcess(func(context.Context) error {
		calls.Add(1)
		return nil
	})

	in, err := base.RegisterInput("in", cty.Number, cty.Zero)
	require.NoError(t, err)

	require.NoError(t, in.Set(cty.NumberIntVal(1)))
	assert.Equal(t, int32(1), calls.Load())

	// Writing the same value again commits nothing, so no execution.
	require.NoError(t, in.Set(cty.NumberIntVal(1)))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBase_AutoExecute_Disabled(t *testing.T) {
	base, err := NewBase("node")
	require.NoError(t, err)

	var calls atomic.Int32
	base.BindProcess(func(context.Context) error {
		calls.Add(1)
		return nil
	})

	in, err := base.RegisterInput("in", cty.Number, cty.Zero)
	require.NoError(t, err)

	require.NoError(t, in.Set(cty.NumberIntVal(1)))
	assert.Equal(t, int32(0), calls.Load())
}

func TestBase_DetachPorts(t *testing.T) {
	base, err := NewBase("node", WithAutoExecute())
	require.NoError(t, err)

	var calls atomic.Int32
	base.BindProcess(func(context.Context) error {
		calls.Add(1)
		return nil
	})

	in, err := base.RegisterInput("in", cty.Number, cty.Zero)
	require.NoError(t, err)
	out, err := base.RegisterOutput("out", cty.Number, cty.Zero)
	require.NoError(t, err)

	var outChanges atomic.Int32
	out.OnChange(func(domain.PortChange) { outChanges.Add(1) })

	base.DetachPorts()

	// Neither the auto-execute subscription nor external observers
	// survive a detach; the ports themselves stay readable.
	require.NoError(t, in.Set(cty.NumberIntVal(5)))
	require.NoError(t, out.Set(cty.NumberIntVal(7)))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, int32(0), outChanges.Load())
	assert.True(t, in.Value().RawEquals(cty.NumberIntVal(5)))
	assert.True(t, out.Value().RawEquals(cty.NumberIntVal(7)))
}
