// Package topology provides the in-memory topology store: an edge set
// that executors subscribe to for structural change notifications.
package topology

import (
	"fmt"
	"sync"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.TopologySource = (*Store)(nil)

// storeObserver pairs a subscription token with its observer so that
// unsubscribe can remove exactly one registration.
type storeObserver struct {
	id  int
	obs ports.TopologyObserver
}

// Store is a thread-safe, in-memory edge set. Edges are identified by
// their full (source node, source port, target node, target port) tuple,
// so two nodes may be connected through several distinct port pairs but
// never twice through the same pair. Observers are notified after each
// mutation commits, outside the store's lock, on the mutating goroutine.
type Store struct {
	mu sync.RWMutex

	// edges holds the edge list in insertion order. Guarded by mu.
	edges []domain.Edge

	// index mirrors edges as a set for O(1) duplicate checks.
	// Guarded by mu.
	index map[domain.Edge]struct{}

	// observers holds change subscriptions in registration order.
	// Guarded by mu.
	observers []storeObserver

	// nextObserverID is the token handed to the next subscription.
	nextObserverID int
}

// NewStore creates an empty topology store.
func NewStore() *Store {
	return &Store{index: make(map[domain.Edge]struct{})}
}

// AddEdge inserts an edge and notifies observers. Inserting an edge that
// already exists is rejected with ErrDuplicateEdge and notifies nobody.
func (s *Store) AddEdge(edge domain.Edge) error {
	s.mu.Lock()
	if _, exists := s.index[edge]; exists {
		s.mu.Unlock()
		return fmt.Errorf("topology: %s: %w", edge.String(), ErrDuplicateEdge)
	}
	s.edges = append(s.edges, edge)
	s.index[edge] = struct{}{}
	observers := s.observerSnapshotLocked()
	s.mu.Unlock()

	for _, en := range observers {
		en.obs.EdgeAdded(edge)
	}
	return nil
}

// RemoveEdge deletes an edge and notifies observers. It reports whether
// the edge existed; removing an absent edge is a no-op.
func (s *Store) RemoveEdge(edge domain.Edge) bool {
	s.mu.Lock()
	if _, exists := s.index[edge]; !exists {
		s.mu.Unlock()
		return false
	}
	s.deleteLocked(edge)
	observers := s.observerSnapshotLocked()
	s.mu.Unlock()

	for _, en := range observers {
		en.obs.EdgeRemoved(edge)
	}
	return true
}

// RemoveNode deletes every edge whose source or target is nodeID and then
// announces the node's removal. Observers receive one EdgeRemoved per
// dropped edge followed by a single NodeRemoved, so an executor can
// release the node's processor after its connections are already gone.
// The count of dropped edges is returned; zero still announces the node.
func (s *Store) RemoveNode(nodeID string) int {
	s.mu.Lock()
	var dropped []domain.Edge
	for _, edge := range s.edges {
		if edge.SourceNode == nodeID || edge.TargetNode == nodeID {
			dropped = append(dropped, edge)
		}
	}
	for _, edge := range dropped {
		s.deleteLocked(edge)
	}
	observers := s.observerSnapshotLocked()
	s.mu.Unlock()

	for _, en := range observers {
		for _, edge := range dropped {
			en.obs.EdgeRemoved(edge)
		}
		en.obs.NodeRemoved(nodeID)
	}
	return len(dropped)
}

// Edges returns a snapshot copy of the edge list in insertion order.
// Mutating the returned slice does not affect the store.
func (s *Store) Edges() []domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]domain.Edge, len(s.edges))
	copy(snapshot, s.edges)
	return snapshot
}

// Contains reports whether the exact edge is present.
func (s *Store) Contains(edge domain.Edge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[edge]
	return ok
}

// Len returns the number of edges.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Subscribe registers an observer for structural change notifications and
// returns an unsubscribe function; calling it more than once is harmless.
func (s *Store) Subscribe(observer ports.TopologyObserver) (unsubscribe func()) {
	if observer == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextObserverID
	s.nextObserverID++
	s.observers = append(s.observers, storeObserver{id: id, obs: observer})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, en := range s.observers {
			if en.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// deleteLocked removes edge from both the list and the index.
// Callers must hold mu.
func (s *Store) deleteLocked(edge domain.Edge) {
	delete(s.index, edge)
	for i, e := range s.edges {
		if e == edge {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return
		}
	}
}

// observerSnapshotLocked copies the observer list so notifications run
// outside mu. Callers must hold mu.
func (s *Store) observerSnapshotLocked() []storeObserver {
	snapshot := make([]storeObserver, len(s.observers))
	copy(snapshot, s.observers)
	return snapshot
}
