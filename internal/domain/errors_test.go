package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"
)

// TestTypeError verifies message formatting and the unwrap chain down to
// ErrTypeMismatch.
func TestTypeError(t *testing.T) {
	tests := []struct {
		name    string
		err     *TypeError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     NewTypeError("in", cty.Number, cty.String, nil),
			wantMsg: "port in: cannot accept string as number: type mismatch",
		},
		{
			name:    "with cause",
			err:     NewTypeError("in", cty.Number, cty.String, errors.New("a number is required")),
			wantMsg: "port in: cannot accept string as number: type mismatch: a number is required",
		},
		{
			name:    "value never entered the type system",
			err:     NewTypeError("in", cty.Number, cty.NilType, errors.New("no cty.Type for func()")),
			wantMsg: "port in: cannot accept value as number: type mismatch: no cty.Type for func()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error(), "TypeError message mismatch.")
			assert.ErrorIs(t, tt.err, ErrTypeMismatch, "TypeError should unwrap to ErrTypeMismatch.")
		})
	}
}

// TestTypeError_Wrapped verifies that a TypeError survives another layer
// of wrapping, as the engine's callers will add context of their own.
func TestTypeError_Wrapped(t *testing.T) {
	inner := NewTypeError("value", cty.Bool, cty.Number, nil)
	outer := fmt.Errorf("propagate edge: %w", inner)

	var typeErr *TypeError
	assert.ErrorAs(t, outer, &typeErr, "Wrapped error should expose the TypeError.")
	assert.Equal(t, "value", typeErr.PortID, "Unwrapped TypeError should keep its port id.")
	assert.ErrorIs(t, outer, ErrTypeMismatch, "Wrapped error should still match the sentinel.")
}

// TestPortError verifies message formatting and that sentinel matching
// reaches through the wrapper.
func TestPortError(t *testing.T) {
	err := &PortError{PortID: "result", Op: "register output", Err: ErrUnknownPort}

	assert.Equal(t, "port result: register output: unknown port", err.Error(),
		"PortError message mismatch.")
	assert.ErrorIs(t, err, ErrUnknownPort, "PortError should unwrap to its cause.")

	outer := fmt.Errorf("build graph: %w", err)
	var portErr *PortError
	assert.ErrorAs(t, outer, &portErr, "Wrapped error should expose the PortError.")
	assert.Equal(t, "result", portErr.PortID, "Unwrapped PortError should keep its port id.")
}

// TestValidationError verifies single and multi-failure formatting.
func TestValidationError(t *testing.T) {
	ve := NewValidationError("graph config")
	assert.False(t, ve.HasErrors(), "A fresh ValidationError should be empty.")

	ve.AddError("node id is empty")
	assert.True(t, ve.HasErrors(), "HasErrors() should report the added failure.")
	assert.Equal(t, "validation error for graph config: node id is empty", ve.Error(),
		"Single-failure message mismatch.")

	ve.Addf("edge %d references unknown node %q", 2, "mixer")
	assert.Len(t, ve.Errors, 2, "Addf() should append a formatted failure.")
	assert.Contains(t, ve.Error(), "validation errors for graph config", "Multi-failure prefix mismatch.")
}
