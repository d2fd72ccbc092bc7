package memstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cognicore/moodlens/pkg/moodlens/journal"
)

// Store is an in-memory implementation of journal.Store for tests.
// The collection is kept serialised so callers never share slices with it.
type Store struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Close implements journal.Store.
func (s *Store) Close() error { return nil }

// Load implements journal.Store.
func (s *Store) Load(ctx context.Context) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, nil
	}
	var entries []journal.Entry
	if err := json.Unmarshal(s.data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save implements journal.Store.
func (s *Store) Save(ctx context.Context, entries []journal.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
