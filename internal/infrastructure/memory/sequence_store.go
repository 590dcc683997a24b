package memory

import (
	"context"
	"sync"
)

// SequenceStore is an in-memory atomic counter per key.
type SequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewSequenceStore() *SequenceStore {
	return &SequenceStore{counters: make(map[string]int64)}
}

func (s *SequenceStore) Next(ctx context.Context, key string) (int64, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key]++
	return s.counters[key], nil
}
