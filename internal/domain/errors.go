package domain

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Common domain errors that can occur during dataflow operations.
var (
	// ErrTypeMismatch indicates that a value's type doesn't match the
	// port's type and no safe conversion exists.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptyPortID indicates that a port was created without an identity.
	ErrEmptyPortID = errors.New("empty port id")

	// ErrNilType indicates that a port was created without a value type.
	ErrNilType = errors.New("nil value type")

	// ErrNilValue indicates that a write carried no value at all.
	ErrNilValue = errors.New("nil value")

	// ErrUnrepresentableValue indicates that a native Go value has no
	// equivalent in the port value type system.
	ErrUnrepresentableValue = errors.New("unrepresentable value")

	// ErrUnknownPort indicates that an operation referenced a port id the
	// target processor does not expose.
	ErrUnknownPort = errors.New("unknown port")
)

// TypeError represents a rejected value write: the offered value could not
// be accepted by the target port, either because no safe conversion exists
// between the two types or because the conversion itself failed.
type TypeError struct {
	// PortID is the port that rejected the write.
	PortID string

	// Want is the port's declared value type.
	Want cty.Type

	// Got is the type of the offered value. It is cty.NilType when the
	// offered value never made it into the type system at all.
	Got cty.Type

	// Err is the underlying error. It always unwraps to ErrTypeMismatch.
	Err error
}

// Error implements the error interface for TypeError.
func (e *TypeError) Error() string {
	if e.Got == cty.NilType {
		return fmt.Sprintf("port %s: cannot accept value as %s: %v", e.PortID, e.Want.FriendlyName(), e.Err)
	}
	return fmt.Sprintf("port %s: cannot accept %s as %s: %v", e.PortID, e.Got.FriendlyName(), e.Want.FriendlyName(), e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is checks
// against ErrTypeMismatch.
func (e *TypeError) Unwrap() error { return e.Err }

// NewTypeError creates a TypeError for the given port and types.
// The optional cause (a failed conversion, an unrepresentable Go value)
// is preserved in the chain beneath ErrTypeMismatch.
func NewTypeError(portID string, want, got cty.Type, cause error) *TypeError {
	err := error(ErrTypeMismatch)
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrTypeMismatch, cause)
	}
	return &TypeError{
		PortID: portID,
		Want:   want,
		Got:    got,
		Err:    err,
	}
}

// PortError represents a failed operation on a named port. It carries
// the port id and operation for context and unwraps to the underlying
// cause, so callers can match sentinels through it with errors.Is.
type PortError struct {
	// PortID is the port the operation addressed.
	PortID string

	// Op names the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for PortError.
func (e *PortError) Error() string {
	return fmt.Sprintf("port %s: %s: %v", e.PortID, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PortError) Unwrap() error { return e.Err }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// Addf formats and adds a new error message to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
