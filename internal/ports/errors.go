package ports

import (
	"errors"
	"fmt"
)

// Common contract-level errors shared by registry and configuration
// implementations.
var (
	// ErrUnknownProcessorType indicates that no factory is registered for
	// a requested processor type.
	ErrUnknownProcessorType = errors.New("unknown processor type")

	// ErrEmptyProcessorType indicates that a factory registration carried
	// no type name.
	ErrEmptyProcessorType = errors.New("empty processor type")

	// ErrNilFactory indicates that a factory registration carried no
	// factory function.
	ErrNilFactory = errors.New("nil processor factory")

	// ErrNilProcessor indicates that a processor-accepting operation
	// received nil.
	ErrNilProcessor = errors.New("nil processor")

	// ErrEmptyNodeID indicates that a processor or operation carried no
	// node identifier.
	ErrEmptyNodeID = errors.New("empty node id")

	// ErrNilTopology indicates that an executor was constructed without a
	// topology source.
	ErrNilTopology = errors.New("nil topology source")

	// ErrExecutorClosed indicates that an operation was invoked on a
	// closed executor.
	ErrExecutorClosed = errors.New("executor closed")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
