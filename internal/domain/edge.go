package domain

import "fmt"

// Edge is a directed connection in the external topology: it links one
// output port of a source node to one input port of a target node. Edges
// are owned and mutated by the topology layer; the engine only ever reads
// them when deriving its dependency graph and when propagating values.
type Edge struct {
	// SourceNode is the node id owning the output port.
	SourceNode string

	// SourcePort is the output port id on the source node.
	SourcePort string

	// TargetNode is the node id owning the input port.
	TargetNode string

	// TargetPort is the input port id on the target node.
	TargetPort string
}

// String renders the edge in "node.port -> node.port" form.
func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.SourceNode, e.SourcePort, e.TargetNode, e.TargetPort)
}
