package application

import (
	"math"

	"github.com/nodecanvas/go-dataflow/internal/domain"
)

// RankUnordered is the sentinel rank assigned to nodes the ranking process
// never reaches: cycle participants, their transitive dependents, and nodes
// fed by edges whose source has no registered processor. Sentinel-ranked
// nodes sort after every ranked node and execute in no particular relative
// order.
const RankUnordered = math.MaxInt

// computeRanks derives a topological rank per registered node id using
// Kahn's algorithm. The in-degree of a node counts every edge whose target
// is that node, restricted to registered targets; zero-in-degree nodes are
// dequeued first and each dequeued node receives the next increasing rank.
// Nodes never dequeued keep RankUnordered.
//
// The resulting map satisfies the ordering invariant for the acyclic part
// of the graph: for every edge (s -> t) with no cycle through it and both
// endpoints registered, ranks[s] < ranks[t].
func computeRanks(registered map[string]struct{}, edges []domain.Edge) map[string]int {
	inDegree := make(map[string]int, len(registered))
	for id := range registered {
		inDegree[id] = 0
	}

	// Adjacency for rank bookkeeping keeps one entry per edge, mirroring
	// the per-edge in-degree increments so the decrement phase drains them
	// exactly. Targets without a registered processor are not ranked.
	next := make(map[string][]string, len(registered))
	for _, edge := range edges {
		if _, ok := inDegree[edge.TargetNode]; !ok {
			continue
		}
		inDegree[edge.TargetNode]++
		next[edge.SourceNode] = append(next[edge.SourceNode], edge.TargetNode)
	}

	queue := make([]string, 0, len(registered))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	ranks := make(map[string]int, len(registered))
	for id := range registered {
		ranks[id] = RankUnordered
	}

	rank := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		ranks[id] = rank
		rank++

		for _, target := range next[id] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	return ranks
}

// buildDependents derives the dependency graph from the edge set: a map
// from source node id to the distinct node ids that depend on it through
// at least one edge. An entry exists only for sources with at least one
// outgoing edge.
func buildDependents(edges []domain.Edge) map[string][]string {
	seen := make(map[string]map[string]struct{})
	dependents := make(map[string][]string)

	for _, edge := range edges {
		targets, ok := seen[edge.SourceNode]
		if !ok {
			targets = make(map[string]struct{})
			seen[edge.SourceNode] = targets
		}
		if _, dup := targets[edge.TargetNode]; dup {
			continue
		}
		targets[edge.TargetNode] = struct{}{}
		dependents[edge.SourceNode] = append(dependents[edge.SourceNode], edge.TargetNode)
	}

	return dependents
}

// affectedFrom collects the node ids reachable from start through the
// dependents relation, including start itself, in breadth-first order.
// Each id appears at most once, so traversal terminates on cyclic graphs.
func affectedFrom(start string, dependents map[string][]string) []string {
	visited := map[string]struct{}{start: {}}
	order := []string{start}

	for i := 0; i < len(order); i++ {
		for _, target := range dependents[order[i]] {
			if _, ok := visited[target]; ok {
				continue
			}
			visited[target] = struct{}{}
			order = append(order, target)
		}
	}

	return order
}
