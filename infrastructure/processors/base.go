package processors

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.Processor = (*Base)(nil)

// Base implements the port-management half of ports.Processor so concrete
// processors only supply their compute function. It owns the named input
// and output ports, the optional auto-execute subscription that triggers
// the compute function when an input changes, and the re-entrancy guard
// that keeps reactive chains from recursing into a processor that is
// already running.
//
// The guard gives at-least-once, not queued, semantics: an input change
// arriving while Process runs is dropped, and the processor is expected
// to read the latest input values whenever it does run. This is what
// terminates synchronous reactive chains around cyclic topologies.
//
// Concrete processors bind their compute function with BindProcess during
// construction, before the processor is registered anywhere.
type Base struct {
	// nodeID is the node this processor backs.
	nodeID string

	// autoExecute, when set, subscribes every registered input port so a
	// committed change invokes Process on the writer's goroutine.
	autoExecute bool

	// running is the re-entrancy guard around the compute function.
	running atomic.Bool

	// process is the bound compute function; nil means Process is a no-op.
	process func(ctx context.Context) error

	mu sync.RWMutex

	// inputs and outputs hold the declared ports by id. Guarded by mu.
	inputs  map[string]*domain.Port
	outputs map[string]*domain.Port

	// inputUnsubs holds the auto-execute subscriptions for DetachPorts.
	// Guarded by mu.
	inputUnsubs []func()
}

// BaseOption configures optional Base behavior.
type BaseOption func(*Base)

// WithAutoExecute makes the processor invoke its compute function
// whenever one of its input ports commits a change. The default is
// manual: inputs accumulate silently until an execution pass, or until
// the host calls Process itself.
func WithAutoExecute() BaseOption {
	return func(b *Base) { b.autoExecute = true }
}

// NewBase creates the port-management core for a processor bound to
// nodeID. Returns ErrEmptyNodeID if nodeID is empty.
func NewBase(nodeID string, opts ...BaseOption) (*Base, error) {
	if nodeID == "" {
		return nil, ErrEmptyNodeID
	}

	b := &Base{
		nodeID:  nodeID,
		inputs:  make(map[string]*domain.Port),
		outputs: make(map[string]*domain.Port),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NodeID returns the node this processor backs.
func (b *Base) NodeID() string { return b.nodeID }

// BindProcess installs the compute function invoked by Process. It must
// be called during construction, before the processor is registered or
// its ports are wired; later rebinding is not synchronized.
func (b *Base) BindProcess(fn func(ctx context.Context) error) {
	b.process = fn
}

// RegisterInput creates an input port with the given id, type, and
// initial value. With auto-execute enabled the port is subscribed so
// committed changes invoke Process. Registering an id twice returns a
// *domain.PortError wrapping ErrDuplicatePort.
func (b *Base) RegisterInput(portID string, typ cty.Type, initial cty.Value) (*domain.Port, error) {
	port, err := domain.NewPort(portID, typ, initial)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if _, exists := b.inputs[portID]; exists {
		b.mu.Unlock()
		return nil, &domain.PortError{PortID: portID, Op: "register input", Err: ErrDuplicatePort}
	}
	b.inputs[portID] = port
	if b.autoExecute {
		unsub := port.OnChange(func(domain.PortChange) {
			// Auto-execution has no caller to report to; pass-driven
			// invocations surface errors through node results instead.
			_ = b.Process(context.Background())
		})
		b.inputUnsubs = append(b.inputUnsubs, unsub)
	}
	b.mu.Unlock()

	return port, nil
}

// RegisterOutput creates an output port with the given id, type, and
// initial value. Registering an id twice returns a *domain.PortError
// wrapping ErrDuplicatePort.
func (b *Base) RegisterOutput(portID string, typ cty.Type, initial cty.Value) (*domain.Port, error) {
	port, err := domain.NewPort(portID, typ, initial)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if _, exists := b.outputs[portID]; exists {
		b.mu.Unlock()
		return nil, &domain.PortError{PortID: portID, Op: "register output", Err: ErrDuplicatePort}
	}
	b.outputs[portID] = port
	b.mu.Unlock()

	return port, nil
}

// InputPort returns the input port with the given id.
func (b *Base) InputPort(id string) (*domain.Port, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	port, ok := b.inputs[id]
	return port, ok
}

// OutputPort returns the output port with the given id.
func (b *Base) OutputPort(id string) (*domain.Port, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	port, ok := b.outputs[id]
	return port, ok
}

// InputPorts returns a snapshot of the input ports keyed by port id.
func (b *Base) InputPorts() map[string]*domain.Port {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot := make(map[string]*domain.Port, len(b.inputs))
	for id, port := range b.inputs {
		snapshot[id] = port
	}
	return snapshot
}

// OutputPorts returns a snapshot of the output ports keyed by port id.
func (b *Base) OutputPorts() map[string]*domain.Port {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot := make(map[string]*domain.Port, len(b.outputs))
	for id, port := range b.outputs {
		snapshot[id] = port
	}
	return snapshot
}

// Process invokes the bound compute function under the re-entrancy
// guard. A call arriving while another is in flight is dropped and
// reports success; with no bound function Process is a no-op.
func (b *Base) Process(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	defer b.running.Store(false)

	if b.process == nil {
		return nil
	}
	return b.process(ctx)
}

// DetachPorts releases the auto-execute subscriptions and every observer
// registered on the processor's ports. The ports and their current
// values remain readable; only notification wiring is torn down. Call it
// when disposing a processor so stale subscriptions cannot keep firing.
func (b *Base) DetachPorts() {
	b.mu.Lock()
	unsubs := b.inputUnsubs
	b.inputUnsubs = nil
	detached := make([]*domain.Port, 0, len(b.inputs)+len(b.outputs))
	for _, port := range b.inputs {
		detached = append(detached, port)
	}
	for _, port := range b.outputs {
		detached = append(detached, port)
	}
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	for _, port := range detached {
		port.DetachObservers()
	}
}
