// Package memory implements chatflow.Store in process memory.
// It is the default store when no database is configured, and the store used in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/meikuraledutech/chatflow"
)

// Store implements chatflow.Store with a map of flow snapshots.
type Store struct {
	mu    sync.RWMutex
	flows map[string]chatflow.Flow
}

// New creates an empty Store.
func New() *Store {
	return &Store{flows: make(map[string]chatflow.Flow)}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every stored flow.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = make(map[string]chatflow.Flow)
	return nil
}

// SaveFlow stores a copy of f under flowID, replacing any previous snapshot.
func (s *Store) SaveFlow(ctx context.Context, flowID string, f *chatflow.Flow) error {
	if f == nil {
		return fmt.Errorf("%w: nil flow", chatflow.ErrInvalidFlow)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flowID] = f.Clone()
	return nil
}

// GetFlow returns a copy of the stored flow, or nil, nil if there is none.
func (s *Store) GetFlow(ctx context.Context, flowID string) (*chatflow.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[flowID]
	if !ok {
		return nil, nil
	}
	c := f.Clone()
	return &c, nil
}

// DeleteFlow removes a flow. No error if it doesn't exist.
func (s *Store) DeleteFlow(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, flowID)
	return nil
}

// ListFlows returns stored flow ids in sorted order.
func (s *Store) ListFlows(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.flows))
	for id := range s.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
