package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/zclconf/go-cty/cty/convert"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/nodecanvas/go-dataflow/infrastructure/topology"
	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// TopologyLoader provides YAML parsing, validation, and caching for
// dataflow graph configurations. Loading and building are deliberately
// separate: Load yields a validated, immutable GraphConfig (cached by
// content hash), while Build turns a config into fresh processors and a
// fresh topology store on every call. Processors are stateful, so built
// graphs are never cached or shared.
type TopologyLoader struct {
	// validator performs struct field validation and custom validation
	// rules for graph configurations and their nested components.
	validator *validator.Validate
	// registry provides factory methods for creating processors based on
	// their type and configuration parameters.
	registry ports.ProcessorRegistry
	// cache stores validated configs indexed by SHA256 hash of the
	// normalized YAML to avoid revalidation of identical documents.
	// Cached configs are treated as immutable; Build never mutates them.
	cache map[string]*GraphConfig
	// cacheMu provides thread-safe access to the cache map during
	// concurrent read and write operations.
	cacheMu sync.RWMutex
	// sf prevents duplicate validation when multiple goroutines load the
	// same document simultaneously.
	sf singleflight.Group
}

// BuiltGraph is the product of TopologyLoader.Build: the live processors
// keyed by node id and the topology store holding the config's edges.
// Hand Topology to NewExecutor and then register the processors.
type BuiltGraph struct {
	// Config is the validated configuration this graph was built from.
	Config *GraphConfig
	// Topology holds the config's edges and is ready for an executor to
	// subscribe to.
	Topology *topology.Store
	// Processors holds the built processors keyed by node id.
	Processors map[string]ports.Processor
}

// RegisterAll registers every built processor with the executor in
// lexical node-id order. It stops at the first registration error.
func (bg *BuiltGraph) RegisterAll(executor ports.Executor) error {
	ids := make([]string, 0, len(bg.Processors))
	for id := range bg.Processors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := executor.RegisterProcessor(bg.Processors[id]); err != nil {
			return fmt.Errorf("failed to register processor %s: %w", id, err)
		}
	}
	return nil
}

// NewTopologyLoader creates a loader bound to the given processor
// registry, with custom validators registered and an empty config cache.
// NewTopologyLoader returns an error if the registry is nil or validator
// registration fails.
func NewTopologyLoader(registry ports.ProcessorRegistry) (*TopologyLoader, error) {
	if registry == nil {
		return nil, fmt.Errorf("topology loader: nil processor registry")
	}

	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &TopologyLoader{
		validator: v,
		registry:  registry,
		cache:     make(map[string]*GraphConfig),
	}, nil
}

// LoadFromFile loads and validates a graph configuration from a YAML
// file, utilizing SHA256-based caching to avoid revalidating identical
// documents. The returned config is shared with the cache and must not
// be mutated.
func (tl *TopologyLoader) LoadFromFile(ctx context.Context, path string) (*GraphConfig, error) {
	// Clean the path to prevent directory traversal through config-driven
	// file names.
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return tl.load(ctx, data)
}

// LoadFromReader loads and validates a graph configuration from an
// io.Reader, applying the same caching and validation as LoadFromFile.
// The returned config is shared with the cache and must not be mutated.
func (tl *TopologyLoader) LoadFromReader(ctx context.Context, r io.Reader) (*GraphConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return tl.load(ctx, data)
}

// LoadFromBytes loads and validates a graph configuration from raw YAML
// bytes, applying the same caching and validation as LoadFromFile.
// The returned config is shared with the cache and must not be mutated.
func (tl *TopologyLoader) LoadFromBytes(ctx context.Context, data []byte) (*GraphConfig, error) {
	return tl.load(ctx, data)
}

// load is the common implementation for loading configs from byte data,
// using singleflight so concurrent loads of the same document validate
// once and share the cached result.
func (tl *TopologyLoader) load(ctx context.Context, data []byte) (*GraphConfig, error) {
	// Parse first to normalize before hashing: formatting and key order
	// must not defeat the cache.
	config, err := tl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := tl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := tl.sf.Do(hash, func() (any, error) {
		// Check the cache inside singleflight to close the race between
		// the cache check and group execution.
		if cached, ok := tl.getCachedConfig(hash); ok {
			return cached, nil
		}

		if err := tl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		tl.cacheConfig(hash, config)
		return config, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*GraphConfig), nil
}

// parseYAML unmarshals YAML byte data into a GraphConfig using strict
// decoding, so unknown fields surface as errors instead of silently
// ignored typos.
func (tl *TopologyLoader) parseYAML(data []byte) (*GraphConfig, error) {
	var config GraphConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig performs comprehensive validation on a parsed graph
// configuration: struct field validation followed by semantic validation
// of the relationships between configuration elements.
func (tl *TopologyLoader) validateConfig(config *GraphConfig) error {
	if err := tl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := tl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics performs domain-specific validation that cannot be
// expressed through struct tags: node id uniqueness, processor type
// resolution against the registry, and edge reference integrity.
// Unrecognized identifiers come back with a "did you mean" hint when a
// registered name is close enough. Port existence is checked by Build,
// which has the live processors to ask.
func (tl *TopologyLoader) validateSemantics(config *GraphConfig) error {
	supported := tl.registry.SupportedTypes()

	nodeIDs := make(map[string]struct{}, len(config.Nodes))
	for _, node := range config.Nodes {
		if _, exists := nodeIDs[node.ID]; exists {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		nodeIDs[node.ID] = struct{}{}

		if !containsString(supported, node.Type) {
			if hint, ok := suggestClosest(node.Type, supported); ok {
				return fmt.Errorf("node %s: unknown processor type %q (did you mean %q?)", node.ID, node.Type, hint)
			}
			return fmt.Errorf("node %s: unknown processor type %q", node.ID, node.Type)
		}
	}

	knownIDs := make([]string, 0, len(nodeIDs))
	for id := range nodeIDs {
		knownIDs = append(knownIDs, id)
	}

	seenEdges := make(map[string]struct{}, len(config.Edges))
	for _, edge := range config.Edges {
		fromNode, _, err := ParsePortRef(edge.From)
		if err != nil {
			return err
		}
		toNode, _, err := ParsePortRef(edge.To)
		if err != nil {
			return err
		}

		if _, exists := nodeIDs[fromNode]; !exists {
			return unknownNodeError("edge source", fromNode, knownIDs)
		}
		if _, exists := nodeIDs[toNode]; !exists {
			return unknownNodeError("edge target", toNode, knownIDs)
		}

		key := edge.From + "->" + edge.To
		if _, dup := seenEdges[key]; dup {
			return fmt.Errorf("duplicate edge %s -> %s", edge.From, edge.To)
		}
		seenEdges[key] = struct{}{}
	}

	return nil
}

// unknownNodeError formats a reference-integrity error, attaching a
// "did you mean" hint when one of the known ids is close.
func unknownNodeError(role, nodeID string, known []string) error {
	if hint, ok := suggestClosest(nodeID, known); ok {
		return fmt.Errorf("%s references non-existent node %q (did you mean %q?)", role, nodeID, hint)
	}
	return fmt.Errorf("%s references non-existent node %q", role, nodeID)
}

// containsString reports whether list contains s.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Build constructs live processors and a topology store from a validated
// configuration. Every call produces fresh instances; nothing is shared
// with previous builds. Beyond the loader's semantic validation, Build
// resolves each edge against the real processors it connects: the source
// must expose the named output port, the target the named input port,
// and the two port types must be convertible, so a well-formed config
// cannot produce edges that silently never deliver.
func (tl *TopologyLoader) Build(ctx context.Context, config *GraphConfig) (*BuiltGraph, error) {
	procs := make(map[string]ports.Processor, len(config.Nodes))
	for _, node := range config.Nodes {
		proc, err := tl.createProcessor(node)
		if err != nil {
			return nil, fmt.Errorf("failed to create node %s: %w", node.ID, err)
		}
		procs[node.ID] = proc
	}

	store := topology.NewStore()
	for _, edgeConfig := range config.Edges {
		edge, err := resolveEdge(edgeConfig, procs)
		if err != nil {
			return nil, err
		}
		if err := store.AddEdge(edge); err != nil {
			return nil, fmt.Errorf("failed to add edge: %w", err)
		}
	}

	return &BuiltGraph{Config: config, Topology: store, Processors: procs}, nil
}

// createProcessor instantiates one node's processor from its
// configuration, decoding the flexible YAML params into the map form
// processor factories consume.
func (tl *TopologyLoader) createProcessor(node NodeConfig) (ports.Processor, error) {
	var params map[string]any
	if !node.Params.IsZero() {
		if err := node.Params.Decode(&params); err != nil {
			return nil, fmt.Errorf("failed to decode params: %w", err)
		}
	}

	return tl.registry.CreateProcessor(node.Type, node.ID, params)
}

// resolveEdge checks one configured edge against the built processors
// and returns the domain edge it denotes.
func resolveEdge(edgeConfig EdgeConfig, procs map[string]ports.Processor) (domain.Edge, error) {
	fromNode, fromPort, err := ParsePortRef(edgeConfig.From)
	if err != nil {
		return domain.Edge{}, err
	}
	toNode, toPort, err := ParsePortRef(edgeConfig.To)
	if err != nil {
		return domain.Edge{}, err
	}

	source, ok := procs[fromNode]
	if !ok {
		return domain.Edge{}, fmt.Errorf("edge source references non-existent node %q", fromNode)
	}
	target, ok := procs[toNode]
	if !ok {
		return domain.Edge{}, fmt.Errorf("edge target references non-existent node %q", toNode)
	}

	out, ok := source.OutputPort(fromPort)
	if !ok {
		return domain.Edge{}, fmt.Errorf("node %s has no output port %q (available: %s): %w",
			fromNode, fromPort, portNames(source.OutputPorts()), domain.ErrUnknownPort)
	}
	in, ok := target.InputPort(toPort)
	if !ok {
		return domain.Edge{}, fmt.Errorf("node %s has no input port %q (available: %s): %w",
			toNode, toPort, portNames(target.InputPorts()), domain.ErrUnknownPort)
	}

	if !out.Type().Equals(in.Type()) && convert.GetConversion(out.Type(), in.Type()) == nil {
		return domain.Edge{}, fmt.Errorf("edge %s -> %s connects incompatible port types %s and %s",
			edgeConfig.From, edgeConfig.To, out.Type().FriendlyName(), in.Type().FriendlyName())
	}

	return domain.Edge{
		SourceNode: fromNode,
		SourcePort: fromPort,
		TargetNode: toNode,
		TargetPort: toPort,
	}, nil
}

// portNames renders a port map's keys for error messages, sorted for
// stable output.
func portNames(portsByID map[string]*domain.Port) string {
	if len(portsByID) == 0 {
		return "none"
	}
	names := make([]string, 0, len(portsByID))
	for id := range portsByID {
		names = append(names, id)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}

// calculateConfigHash computes the SHA256 hash of a normalized
// GraphConfig for cache indexing, ensuring semantically identical
// documents produce the same hash regardless of whitespace or key
// ordering differences.
func (tl *TopologyLoader) calculateConfigHash(config *GraphConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// getCachedConfig attempts to retrieve a previously validated config
// from the cache using its SHA256 hash as the lookup key.
// getCachedConfig is safe for concurrent use.
func (tl *TopologyLoader) getCachedConfig(hash string) (*GraphConfig, bool) {
	tl.cacheMu.RLock()
	defer tl.cacheMu.RUnlock()

	config, ok := tl.cache[hash]
	return config, ok
}

// cacheConfig stores a validated config in the cache indexed by its
// normalized SHA256 hash for future retrieval.
// cacheConfig is safe for concurrent use.
func (tl *TopologyLoader) cacheConfig(hash string, config *GraphConfig) {
	tl.cacheMu.Lock()
	defer tl.cacheMu.Unlock()

	tl.cache[hash] = config
}

// ClearCache removes all cached configs, forcing subsequent loads to
// revalidate from source. Useful for development and long-lived hosts.
func (tl *TopologyLoader) ClearCache() {
	tl.cacheMu.Lock()
	defer tl.cacheMu.Unlock()

	tl.cache = make(map[string]*GraphConfig)
}
