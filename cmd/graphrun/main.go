// Command graphrun loads a dataflow graph definition, executes it, and
// prints the values observed at its sink nodes. With --watch it keeps
// running and re-executes the graph whenever the definition file changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/time/rate"

	"github.com/nodecanvas/go-dataflow/infrastructure/config"
	"github.com/nodecanvas/go-dataflow/infrastructure/logging"
	"github.com/nodecanvas/go-dataflow/infrastructure/middleware"
	"github.com/nodecanvas/go-dataflow/infrastructure/processors"
	"github.com/nodecanvas/go-dataflow/internal/application"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "graphrun:", err)
		os.Exit(1)
	}
}

// run holds the actual program logic so tests and main share one path.
func run(out io.Writer, args []string) error {
	flags := flag.NewFlagSet("graphrun", flag.ContinueOnError)
	var (
		configFile = flags.String("config", "", "Engine config file (default: search standard locations)")
		envFile    = flags.String("env-file", "", ".env file to load before reading configuration")
		graphPath  = flags.String("graph", "", "Graph definition file (overrides config)")
		watchFlag  = flags.Bool("watch", false, "Re-execute when the graph definition changes")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var loaderOpts []config.LoaderOption
	if *configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(*envFile))
	}

	cfg := config.DefaultEngineConfig()
	if err := config.NewViperLoader(loaderOpts...).Load(ctx, &cfg); err != nil {
		return err
	}

	// Flags beat both the config file and the environment.
	if *graphPath != "" {
		cfg.GraphPath = *graphPath
	}
	if *watchFlag {
		cfg.Watch = true
	}
	if cfg.GraphPath == "" {
		flags.Usage()
		return fmt.Errorf("no graph definition given; use --graph or set graph_path in the config")
	}

	logger := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    "stderr",
		NoColor:   cfg.Logging.NoColor,
		Timestamp: true,
	})

	registry := application.NewDefaultProcessorRegistry()
	topoLoader, err := application.NewTopologyLoader(registry)
	if err != nil {
		return err
	}

	sess, err := newSession(ctx, cfg, topoLoader, logger)
	if err != nil {
		return err
	}
	// Watch mode swaps sess on reloads, so close whichever is current.
	defer func() { sess.close() }()

	if !sess.execute(ctx, out) {
		return fmt.Errorf("execution pass did not run")
	}

	if !cfg.Watch {
		return nil
	}

	logger.Info("watching graph definition", "path", cfg.GraphPath)
	return watchGraph(ctx, out, cfg, topoLoader, logger, &sess)
}

// session bundles a built graph with the executor running it, so watch
// mode can swap both atomically when the definition changes.
type session struct {
	built    *application.BuiltGraph
	executor ports.Executor
	core     *application.Executor
	logger   *logging.ZerologLogger
	cleanup  []func()
}

// newSession builds the graph at cfg.GraphPath and wires an executor
// around it with the configured observers and middleware.
func newSession(ctx context.Context, cfg config.EngineConfig, loader *application.TopologyLoader, logger *logging.ZerologLogger) (*session, error) {
	graphCfg, err := loader.LoadFromFile(ctx, cfg.GraphPath)
	if err != nil {
		return nil, err
	}
	built, err := loader.Build(ctx, graphCfg)
	if err != nil {
		return nil, err
	}

	opts := []application.ExecutorOption{
		application.WithLogger(logger.WithComponent("executor")),
	}
	var collector ports.MetricsCollector
	if cfg.Metrics.Enabled {
		collector = middleware.NewPrometheusMetrics()
		opts = append(opts, application.WithMetrics(collector))
	}

	core, err := application.NewExecutor(built.Topology, opts...)
	if err != nil {
		return nil, err
	}

	s := &session{built: built, core: core, logger: logger}
	s.cleanup = append(s.cleanup, core.Subscribe(middleware.NewLoggingObserver(logger.WithComponent("pass"))))
	if collector != nil {
		s.cleanup = append(s.cleanup, core.Subscribe(middleware.NewMetricsObserver(collector)))
	}

	if err := built.RegisterAll(core); err != nil {
		core.Close()
		return nil, err
	}

	s.executor = core
	if cfg.RateLimit.Enabled {
		s.executor = middleware.NewRateLimitedExecutor(core, rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}
	return s, nil
}

// execute runs a full pass and prints the sink values. It reports
// whether the pass actually ran.
func (s *session) execute(ctx context.Context, out io.Writer) bool {
	if !s.executor.ExecuteAll(ctx) {
		return false
	}
	printSinks(out, s.built)
	return true
}

func (s *session) close() {
	for _, fn := range s.cleanup {
		fn()
	}
	if s.core != nil {
		s.core.Close()
	}
}

// watchGraph re-executes the graph whenever its definition file changes.
// The session pointer is swapped on successful rebuilds; failed reloads
// keep the previous graph running.
func watchGraph(ctx context.Context, out io.Writer, cfg config.EngineConfig, loader *application.TopologyLoader, logger *logging.ZerologLogger, current **session) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors that save
	// atomically replace the file, which drops a direct watch.
	dir := filepath.Dir(cfg.GraphPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	base := filepath.Base(cfg.GraphPath)

	reload := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			// Editors emit bursts of events per save; collapse them.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-reload:
			next, err := newSession(ctx, cfg, loader, logger)
			if err != nil {
				logger.Error("graph reload failed, keeping previous graph", "error", err)
				continue
			}
			(*current).close()
			*current = next
			logger.Info("graph definition reloaded", "path", cfg.GraphPath)
			next.execute(ctx, out)
		}
	}
}

// printSinks writes every sink node's current input values to out in
// deterministic order.
func printSinks(out io.Writer, built *application.BuiltGraph) {
	ids := make([]string, 0, len(built.Processors))
	for id := range built.Processors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sink, ok := built.Processors[id].(*processors.Sink)
		if !ok {
			continue
		}
		inputs := sink.InputPorts()
		portIDs := make([]string, 0, len(inputs))
		for portID := range inputs {
			portIDs = append(portIDs, portID)
		}
		sort.Strings(portIDs)
		for _, portID := range portIDs {
			if v, ok := sink.Value(portID); ok {
				fmt.Fprintf(out, "%s.%s = %s\n", id, portID, formatValue(v))
			}
		}
	}
}

// formatValue renders a cty value for terminal output.
func formatValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch v.Type() {
	case cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return v.GoString()
	}
}
