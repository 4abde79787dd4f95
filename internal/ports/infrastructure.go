package ports

import (
	"context"
	"time"
)

// Logger defines the minimal structured logging interface the engine logs
// through. The engine never logs directly to a concrete backend; hosts
// inject an implementation (or none, in which case logging is a no-op).
// Keys and values alternate in keysAndValues, matching the structured
// logging convention of the major Go logging libraries.
type Logger interface {
	// Debug logs fine-grained engine activity: propagation hops, dirty
	// marks, state transitions.
	Debug(msg string, keysAndValues ...any)

	// Info logs notable lifecycle events: registrations, pass summaries.
	Info(msg string, keysAndValues ...any)

	// Warn logs recoverable anomalies: dropped recursive triggers,
	// ignored execution requests.
	Warn(msg string, keysAndValues ...any)

	// Error logs failures the engine absorbed: processor errors,
	// type-incompatible edges.
	Error(msg string, keysAndValues ...any)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like propagations, dirty marks,
	// dropped triggers, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like registered processor count
	// or dirty set size.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like pass sizes or
	// per-node execution times.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ConfigLoader defines the interface for loading configuration.
// Implementations could read from files, environment variables,
// remote configuration services, or a combination of sources.
type ConfigLoader interface {
	// Load reads configuration from the underlying source.
	// It should populate the provided configuration struct.
	// The config parameter should be a pointer to a struct.
	//
	// Example:
	//
	//	var config EngineConfig
	//	err := loader.Load(ctx, &config)
	Load(ctx context.Context, config any) error

	// Watch monitors configuration changes and calls the callback when
	// changes occur.
	// This enables hot-reloading of configuration without restarting the
	// host application. The callback receives the updated configuration.
	// Returns a function to stop watching when called.
	//
	// Example:
	//
	//	stop, err := loader.Watch(ctx, &config, func(updated any) {
	//	    // Handle configuration update
	//	})
	//	defer stop()
	Watch(ctx context.Context, config any, callback func(any)) (stop func(), err error)
}
