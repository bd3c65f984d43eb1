package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory.
// Data is lost on restart; used for tests and short-lived processes.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Read(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, nil
	}

	rec, err := decodeRecord(s.data)
	if err != nil {
		s.data = nil
		return nil, nil
	}
	return rec, nil
}

func (s *MemoryStore) Write(ctx context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	return nil
}

// Empty reports whether nothing is stored, including corrupt data.
func (s *MemoryStore) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data == nil
}
