package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is the volatile, in-process reference implementation of Store[S].
//
// Checkpoints are kept in serialized form so that every Get returns an
// independent copy and a Put replaces the previous value in one map write.
// Nothing survives a process restart.
//
// Thread-safe for concurrent use.
type MemStore[S any] struct {
	mu   sync.RWMutex
	data map[string][]byte // sessionID -> encoded checkpoint
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		data: make(map[string][]byte),
	}
}

// Create implements Store.
func (m *MemStore[S]) Create(_ context.Context, cp Checkpoint[S]) error {
	data, err := encode(cp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[cp.SessionID]; exists {
		return ErrExists
	}
	m.data[cp.SessionID] = data
	return nil
}

// Get implements Store.
func (m *MemStore[S]) Get(_ context.Context, sessionID string) (Checkpoint[S], error) {
	m.mu.RLock()
	data, exists := m.data[sessionID]
	m.mu.RUnlock()

	if !exists {
		return Checkpoint[S]{}, ErrNotFound
	}
	return decode[S](data)
}

// Put implements Store.
func (m *MemStore[S]) Put(_ context.Context, cp Checkpoint[S]) error {
	data, err := encode(cp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[cp.SessionID] = data
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemStore[S]) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[sessionID]; !exists {
		return ErrNotFound
	}
	delete(m.data, sessionID)
	return nil
}

// List implements Store.
func (m *MemStore[S]) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored sessions.
func (m *MemStore[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
