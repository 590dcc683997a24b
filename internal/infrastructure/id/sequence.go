package id

import (
	"context"
	"fmt"
	"time"
)

const (
	OrderPrefix = "ORD"
	OrderWidth  = 7

	UserPrefix = "USR"
	UserWidth  = 6
)

// Store hands out strictly increasing values per key in a single atomic step.
// Implementations: mutexed map (memory), INSERT ... ON CONFLICT ... RETURNING
// (postgres). The old scan-the-collection-and-increment scheme raced under
// concurrency and is gone; uniqueness no longer depends on an insert-time
// constraint alone.
type Store interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Sequencer formats year-scoped human-readable identifiers such as
// ORD-2026-0000421 and USR-2026-000042.
type Sequencer struct {
	store Store
}

func NewSequencer(store Store) *Sequencer {
	return &Sequencer{store: store}
}

func (s *Sequencer) NextID(ctx context.Context, prefix string, year, width int) (string, error) {
	key := fmt.Sprintf("%s-%04d", prefix, year)
	n, err := s.store.Next(ctx, key)
	if err != nil {
		return "", fmt.Errorf("sequence %s: %w", key, err)
	}
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, width, n), nil
}

func (s *Sequencer) NextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	return s.NextID(ctx, OrderPrefix, now.UTC().Year(), OrderWidth)
}

func (s *Sequencer) NextUserNumber(ctx context.Context, now time.Time) (string, error) {
	return s.NextID(ctx, UserPrefix, now.UTC().Year(), UserWidth)
}
