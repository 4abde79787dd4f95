package application

import (
	"gopkg.in/yaml.v3"
)

// GraphConfig defines the complete declarative specification for a
// dataflow graph and is the schema topology files decode into. A config
// names the processors to build and the port-to-port edges connecting
// them; the loader validates it and the builder turns it into live
// processors plus a topology store.
type GraphConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the graph including
	// name, tags, and labels for organization and discovery.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Nodes defines the processors that make up this graph, each with its
	// own type and type-specific parameters.
	Nodes []NodeConfig `yaml:"nodes" validate:"required,min=1,dive"`
	// Edges specifies the directed port-to-port connections values flow
	// along. A graph without edges is legal: isolated nodes still execute.
	Edges []EdgeConfig `yaml:"edges" validate:"dive"`
}

// Metadata provides descriptive information about a dataflow graph to
// support organization, discovery, and operational management.
type Metadata struct {
	// Name is the human-readable identifier for this graph and must be
	// unique within the deployment scope.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description provides a detailed explanation of the graph's purpose
	// and intended use cases for documentation and discovery.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels that enable filtering and grouping of
	// graphs by functional domain or operational characteristics.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs that provide flexible metadata
	// for integration with external systems and custom categorization.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// NodeConfig defines one processor node within a dataflow graph.
type NodeConfig struct {
	// ID is the unique identifier for this node within the graph, used by
	// edge references in node.port form.
	ID string `yaml:"id" validate:"required,nodeid,min=1,max=100"`
	// Type names the processor implementation to instantiate. Types are
	// resolved against the processor registry during semantic validation,
	// so custom registered types are as valid as the built-ins.
	Type string `yaml:"type" validate:"required,min=1,max=100"`
	// Params contains type-specific configuration as flexible YAML that
	// the processor factory interprets and validates.
	Params yaml.Node `yaml:"params"`
}

// EdgeConfig establishes a directed value connection between two ports in
// node.port form: From names an output port and To an input port. Both
// references are resolved against the built processors, so a config
// cannot wire ports that do not exist.
type EdgeConfig struct {
	// From identifies the source output port as node.port.
	From string `yaml:"from" validate:"required,portref"`
	// To identifies the target input port as node.port.
	To string `yaml:"to" validate:"required,portref"`
}
