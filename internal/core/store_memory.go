package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps the overlay document in process memory. Documents are
// copied through JSON on the way in and out so callers never share maps
// with the store, matching what a persisted backend does.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte

	// SaveErr, when set, is returned by Save instead of storing.
	SaveErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error

	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}

	doc := Document{}
	if s.data == nil {
		return doc, nil
	}
	if err := json.Unmarshal(s.data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return doc, nil
}

// Save replaces the stored document.
func (s *MemoryStore) Save(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode overlay document: %w", err)
	}
	s.data = data
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
