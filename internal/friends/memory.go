package friends

import (
	"context"
	"sync"
)

type edge struct {
	from, to int64
}

// MemoryStore is an in-memory edge store (for development/testing).
type MemoryStore struct {
	mu    sync.RWMutex
	edges map[edge]bool
}

// NewMemoryStore creates a new in-memory edge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		edges: make(map[edge]bool),
	}
}

// InsertEdge adds a directed edge. Inserting an existing edge is a no-op.
func (s *MemoryStore) InsertEdge(_ context.Context, from, to int64) error {
	s.mu.Lock()
	s.edges[edge{from, to}] = true
	s.mu.Unlock()
	return nil
}

// DeleteEdge removes a directed edge. Deleting a missing edge is a no-op.
func (s *MemoryStore) DeleteEdge(_ context.Context, from, to int64) error {
	s.mu.Lock()
	delete(s.edges, edge{from, to})
	s.mu.Unlock()
	return nil
}

// EdgesFrom returns the targets of all edges leaving the given user.
func (s *MemoryStore) EdgesFrom(_ context.Context, from int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for e := range s.edges {
		if e.from == from {
			ids = append(ids, e.to)
		}
	}
	return ids, nil
}

// HasEdge reports whether a directed edge exists.
func (s *MemoryStore) HasEdge(_ context.Context, from, to int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edges[edge{from, to}], nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
