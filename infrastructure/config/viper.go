// Package config loads host configuration for the dataflow engine from
// YAML files and environment variables.
//
// The loader implements ports.ConfigLoader on top of viper, so hosts can
// layer sources the usual way: defaults in code, a YAML file on disk, and
// environment overrides on top. A .env file, when present, is folded into
// the process environment before binding.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Sentinel errors returned by the loader.
var (
	// ErrNilConfig indicates Load or Watch was called with a nil target.
	ErrNilConfig = errors.New("nil config target")

	// ErrNotLoaded indicates Watch was called before a successful Load.
	// The watcher reuses the viper instance Load builds, so ordering
	// matters.
	ErrNotLoaded = errors.New("configuration not loaded")
)

// validate is the package-level validator instance, shared across all
// configuration validation in this package.
var validate = validator.New()

// defaultEnvPrefix namespaces environment overrides so the engine does not
// pick up unrelated variables from the host environment.
const defaultEnvPrefix = "GRAPHRUN"

// configSearchPaths lists the locations probed for a config file when no
// explicit path is given, in priority order.
var configSearchPaths = []string{
	"./graphrun.yml",
	"./graphrun.yaml",
	"./config/graphrun.yml",
	"./config/graphrun.yaml",
	"./cmd/graphrun/config.yml",
}

// EngineConfig is the host-level configuration for running the engine:
// which graph definition to load, how to log, and which operational
// layers to enable. It is distinct from the graph definition itself,
// which describes nodes and edges rather than the process hosting them.
type EngineConfig struct {
	// GraphPath points at the YAML graph definition to load and execute.
	GraphPath string `mapstructure:"graph_path" yaml:"graph_path"`

	// Watch re-executes the graph whenever the definition file changes.
	Watch bool `mapstructure:"watch" yaml:"watch"`

	// Logging controls the structured log output of the host.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the Prometheus collector wired into the engine.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// RateLimit bounds how often full execution passes may be triggered.
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
}

// LoggingConfig selects the log level and output encoding.
type LoggingConfig struct {
	// Level is the minimum severity emitted. Unknown values fall back
	// to info rather than failing startup.
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Format selects console (human-readable) or json output.
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json"`

	// NoColor disables ANSI colors in console output.
	NoColor bool `mapstructure:"no_color" yaml:"no_color"`
}

// MetricsConfig controls metric collection for the engine.
type MetricsConfig struct {
	// Enabled wires a Prometheus collector into the executor when true.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Namespace prefixes every metric family exported by the engine.
	Namespace string `mapstructure:"namespace" yaml:"namespace" validate:"omitempty,alphanum"`
}

// RateLimitConfig bounds execution-pass frequency. Disabled by default;
// interactive hosts rarely need it, batch ingestion pipelines do.
type RateLimitConfig struct {
	// Enabled turns the rate limiter on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// RequestsPerSecond is the sustained pass rate allowed.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"omitempty,gt=0"`

	// Burst is the number of passes that may run back-to-back before
	// the sustained rate applies.
	Burst int `mapstructure:"burst" yaml:"burst" validate:"omitempty,gte=1"`
}

// DefaultEngineConfig returns the configuration used when no file or
// environment overrides are present. Callers should start from this and
// let Load overlay whatever the host provides.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "dataflow",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 50,
			Burst:             10,
		},
	}
}

// Validate checks the configuration against its declared constraints.
func (c *EngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// ViperLoader implements ports.ConfigLoader backed by viper. Values are
// resolved in precedence order: environment variables override the config
// file, which overrides whatever the target struct already holds.
type ViperLoader struct {
	configFile string
	envFile    string
	envPrefix  string

	mu sync.Mutex
	v  *viper.Viper
}

var _ ports.ConfigLoader = (*ViperLoader)(nil)

// LoaderOption customizes a ViperLoader.
type LoaderOption func(*ViperLoader)

// WithConfigFile sets an explicit config file path, skipping the search
// through standard locations.
func WithConfigFile(path string) LoaderOption {
	return func(l *ViperLoader) { l.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(l *ViperLoader) { l.envFile = path }
}

// WithEnvPrefix overrides the environment variable prefix. The default
// is GRAPHRUN, so GRAPHRUN_LOGGING_LEVEL=debug overrides logging.level.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *ViperLoader) { l.envPrefix = strings.ToUpper(prefix) }
}

// NewViperLoader constructs a loader with the given options applied.
func NewViperLoader(opts ...LoaderOption) *ViperLoader {
	l := &ViperLoader{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves configuration sources and populates config, which must be
// a pointer to a struct. A missing config file is not an error; the
// target keeps its current values and only environment overrides apply.
// A file that exists but fails to parse is an error.
//
// If the populated struct implements Validate() error, Load runs it and
// returns its failure.
func (l *ViperLoader) Load(ctx context.Context, config any) error {
	if config == nil {
		return ErrNilConfig
	}

	v := viper.New()

	configFile := l.configFile
	if configFile == "" {
		configFile = findFirstExisting(configSearchPaths)
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			if l.configFile != "" {
				return fmt.Errorf("config file %s: %w", configFile, err)
			}
		} else {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config file %s: %w", configFile, err)
			}
		}
	}

	envFile := l.envFile
	if envFile == "" && fileExists(".env") {
		envFile = ".env"
	}
	if envFile != "" && fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	bindEnvOverrides(v, l.envPrefix)

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}

	if validatable, ok := config.(interface{ Validate() error }); ok {
		if err := validatable.Validate(); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.v = v
	l.mu.Unlock()

	return nil
}

// Watch re-reads the config file on filesystem changes and invokes
// callback with a freshly populated copy of config's underlying type.
// The callback never receives the caller's pointer, so concurrent reads
// of the original struct stay safe. Updates that fail to parse or
// validate are discarded and the previous configuration remains in
// effect.
//
// Load must succeed before Watch is called. The returned stop function
// silences the watcher; it is safe to call more than once.
func (l *ViperLoader) Watch(ctx context.Context, config any, callback func(any)) (func(), error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	l.mu.Lock()
	v := l.v
	l.mu.Unlock()
	if v == nil {
		return nil, ErrNotLoaded
	}

	rv := reflect.ValueOf(config)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, ErrNilConfig
	}
	targetType := rv.Elem().Type()

	var stopped atomic.Bool
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopped.Store(true)
			close(done)
		})
	}

	v.OnConfigChange(func(fsnotify.Event) {
		if stopped.Load() {
			return
		}

		fresh := reflect.New(targetType).Interface()
		if err := v.Unmarshal(fresh); err != nil {
			return
		}
		if validatable, ok := fresh.(interface{ Validate() error }); ok {
			if err := validatable.Validate(); err != nil {
				return
			}
		}
		callback(fresh)
	})
	v.WatchConfig()

	// Viper's watcher goroutine cannot be shut down; stopping here only
	// suppresses further callbacks.
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	return stop, nil
}

// bindEnvOverrides maps prefixed environment variables onto viper keys so
// Unmarshal sees values that never appear in the config file. Viper's
// AutomaticEnv only resolves keys it already knows about, so each
// variable is set explicitly under every plausible nesting.
func bindEnvOverrides(v *viper.Viper, prefix string) {
	p := prefix + "_"
	for _, entry := range os.Environ() {
		pair := strings.SplitN(entry, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], p) {
			continue
		}
		for _, key := range envKeyVariants(strings.TrimPrefix(pair[0], p)) {
			v.Set(key, pair[1])
		}
	}
}

// envKeyVariants expands an underscore-delimited environment key into the
// nested viper keys it could address. LOGGING_NO_COLOR yields
// logging_no_color, logging.no.color and logging.no_color, so both
// single-word and multi-word leaf fields resolve.
func envKeyVariants(key string) []string {
	lower := strings.ToLower(key)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.ReplaceAll(lower, "_", ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}

// findFirstExisting returns the first path in candidates that exists on
// disk, or empty when none do.
func findFirstExisting(candidates []string) string {
	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
