// Package domain contains the core domain models for the dataflow engine:
// typed observable ports, topology edges, and execution pass events.
package domain

import (
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// PortChange describes a single committed value change on a Port.
// Old and New always form a consistent pair: New is the value that
// replaced Old in the same mutation that produced this event.
type PortChange struct {
	// PortID identifies the port that changed.
	PortID string

	// Old is the value the port held before the change.
	Old cty.Value

	// New is the value the port holds after the change.
	New cty.Value
}

// portObserver pairs a subscription token with its callback so that
// unsubscribe can remove exactly one registration.
type portObserver struct {
	id int
	fn func(PortChange)
}

// Port is a typed, observable value cell. Each port carries a fixed
// cty.Type chosen at creation; every subsequent write must either match
// that type or be convertible to it through cty's value-preserving
// conversions. Writes that leave the value unchanged (by cty's RawEquals)
// are silent no-ops and never notify observers.
//
// A Port is safe for concurrent use. Observer callbacks run synchronously
// on the writer's goroutine after the internal lock has been released, so
// callbacks may freely read or write ports (including this one) without
// deadlocking. When two writers race, the relative order of their change
// notifications is unspecified, but each notification carries a consistent
// (Old, New) pair.
type Port struct {
	// id is the port's identity within its owning processor.
	id string

	// typ is the fixed value type accepted by this port.
	typ cty.Type

	mu sync.RWMutex

	// value is the current value. Guarded by mu.
	value cty.Value

	// observers holds change subscriptions in registration order.
	// Guarded by mu.
	observers []portObserver

	// nextObserverID is the token handed to the next subscription.
	nextObserverID int
}

// NewPort creates a port with the given identity, value type, and initial
// value. The initial value must match typ or be safely convertible to it.
func NewPort(id string, typ cty.Type, initial cty.Value) (*Port, error) {
	if id == "" {
		return nil, ErrEmptyPortID
	}
	if typ == cty.NilType {
		return nil, fmt.Errorf("port %s: %w", id, ErrNilType)
	}
	if initial == cty.NilVal {
		return nil, fmt.Errorf("port %s: %w", id, ErrNilValue)
	}

	converted, err := convertValue(id, typ, initial)
	if err != nil {
		return nil, err
	}

	return &Port{id: id, typ: typ, value: converted}, nil
}

// ID returns the port's identity.
func (p *Port) ID() string { return p.id }

// Type returns the fixed value type accepted by this port.
func (p *Port) Type() cty.Type { return p.typ }

// Value returns the port's current value.
func (p *Port) Value() cty.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set writes a new value to the port. Values of a different type are
// converted through cty's safe conversion table; a value that cannot be
// converted is rejected with a *TypeError and the port keeps its current
// value. If the (converted) value equals the current value the write is a
// no-op and observers are not notified. Otherwise the value is swapped
// under the port's lock and every observer is invoked, in registration
// order, after the lock is released.
func (p *Port) Set(v cty.Value) error {
	if v == cty.NilVal {
		return fmt.Errorf("port %s: %w", p.id, ErrNilValue)
	}

	converted, err := convertValue(p.id, p.typ, v)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if converted.RawEquals(p.value) {
		p.mu.Unlock()
		return nil
	}
	old := p.value
	p.value = converted

	// Snapshot under the lock, notify after release. Holding the lock
	// through callbacks would deadlock any observer that reads this port.
	snapshot := make([]portObserver, len(p.observers))
	copy(snapshot, p.observers)
	p.mu.Unlock()

	change := PortChange{PortID: p.id, Old: old, New: converted}
	for _, obs := range snapshot {
		obs.fn(change)
	}
	return nil
}

// SetUntyped writes a native Go value to the port. The value is first
// lifted into the cty type system via its implied type and then follows
// the same conversion and equality rules as Set. A Go value with no cty
// representation, or one that cannot be safely converted to the port's
// type, is rejected with a *TypeError.
func (p *Port) SetUntyped(v any) error {
	lifted, err := FromGo(v)
	if err != nil {
		return NewTypeError(p.id, p.typ, cty.NilType, err)
	}
	return p.Set(lifted)
}

// OnChange registers fn to be invoked after every committed value change.
// It returns an unsubscribe function that removes the registration; calling
// it more than once is harmless. A nil fn registers nothing and returns a
// no-op unsubscribe.
func (p *Port) OnChange(fn func(PortChange)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	p.mu.Lock()
	id := p.nextObserverID
	p.nextObserverID++
	p.observers = append(p.observers, portObserver{id: id, fn: fn})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, obs := range p.observers {
			if obs.id == id {
				p.observers = append(p.observers[:i], p.observers[i+1:]...)
				return
			}
		}
	}
}

// DetachObservers removes every observer registration at once.
// It is intended for processor disposal, where outstanding subscriptions
// would otherwise keep notifying released components.
func (p *Port) DetachObservers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = nil
}

// String returns a compact representation for logs and debugging.
func (p *Port) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("Port(%s:%s=%s)", p.id, p.typ.FriendlyName(), p.value.GoString())
}

// convertValue coerces v to want using cty's safe conversion table only.
// Safe conversions preserve the value (number to string, bool to string,
// collection restructuring); lossy parses such as string to number are
// rejected so that a port's type remains an honest contract.
func convertValue(portID string, want cty.Type, v cty.Value) (cty.Value, error) {
	if v.Type().Equals(want) {
		return v, nil
	}
	conv := convert.GetConversion(v.Type(), want)
	if conv == nil {
		return cty.NilVal, NewTypeError(portID, want, v.Type(), nil)
	}
	converted, err := conv(v)
	if err != nil {
		return cty.NilVal, NewTypeError(portID, want, v.Type(), err)
	}
	return converted, nil
}
