package blob

import (
	"context"
	"sync"
)

// MemoryStore keeps the value in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saved bool
	saves int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "save", Key: DefaultKey, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.saved = true
	s.saves++
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "load", Key: DefaultKey, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "clear", Key: DefaultKey, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.saved = false
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
