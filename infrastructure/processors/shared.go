// Package processors provides the built-in processor library for the
// dataflow engine: the reusable Base port-management abstraction plus the
// concrete node types the topology loader knows how to build.
package processors

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/zclconf/go-cty/cty"
)

// Processor type names as registered with the processor registry and
// referenced from topology files.
const (
	// TypeSource is an externally driven origin node: output ports only,
	// written by UI events or host code.
	TypeSource = "source"

	// TypeSink is a terminal node: input ports only, surfacing received
	// values to a host callback instead of further outputs.
	TypeSink = "sink"

	// TypePassthrough relays its input to its output unchanged.
	TypePassthrough = "passthrough"

	// TypeArithmetic applies a binary numeric operation to two inputs.
	TypeArithmetic = "arithmetic"

	// TypeClamp limits a numeric input to a configured range.
	TypeClamp = "clamp"
)

// Common errors returned by processor construction and execution.
var (
	// ErrEmptyNodeID is returned when attempting to create a processor
	// with an empty node id.
	ErrEmptyNodeID = errors.New("processor node id cannot be empty")

	// ErrDuplicatePort is returned when a port id is registered twice on
	// the same side of a processor.
	ErrDuplicatePort = errors.New("port id already registered")

	// ErrDivideByZero is returned by the arithmetic processor when the
	// divisor input is zero.
	ErrDivideByZero = errors.New("division by zero")

	// ErrNotANumber is returned when a numeric processor reads an input
	// whose value is null or not a number.
	ErrNotANumber = errors.New("input value is not a number")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// parseTypeName maps a topology-file type name to its cty type.
// The supported names cover the primitive port types the built-in
// processors operate on.
func parseTypeName(name string) (cty.Type, error) {
	switch name {
	case "number":
		return cty.Number, nil
	case "string":
		return cty.String, nil
	case "bool":
		return cty.Bool, nil
	default:
		return cty.NilType, fmt.Errorf("unsupported port type %q (want number, string, or bool)", name)
	}
}

// zeroValue returns the conventional initial value for a port type:
// zero, the empty string, or false.
func zeroValue(typ cty.Type) cty.Value {
	switch {
	case typ.Equals(cty.Number):
		return cty.Zero
	case typ.Equals(cty.String):
		return cty.StringVal("")
	case typ.Equals(cty.Bool):
		return cty.False
	default:
		return cty.NullVal(typ)
	}
}

// requireNumber extracts the numeric value of v, rejecting nulls and
// unknowns so arithmetic never runs on placeholder values.
func requireNumber(portID string, v cty.Value) (cty.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, fmt.Errorf("port %s: %w", portID, ErrNotANumber)
	}
	if !v.Type().Equals(cty.Number) {
		return cty.NilVal, fmt.Errorf("port %s: %s: %w", portID, v.Type().FriendlyName(), ErrNotANumber)
	}
	return v, nil
}
