package id

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoworks/printshop/app/internal/infrastructure/memory"
)

func TestNextOrderNumberFormat(t *testing.T) {
	s := NewSequencer(memory.NewSequenceStore())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	first, err := s.NextOrderNumber(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0000001", first)

	second, err := s.NextOrderNumber(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0000002", second)
}

func TestNextUserNumberFormat(t *testing.T) {
	s := NewSequencer(memory.NewSequenceStore())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := s.NextUserNumber(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "USR-2026-000001", n)
}

func TestSequencesAreIndependentPerYearAndPrefix(t *testing.T) {
	s := NewSequencer(memory.NewSequenceStore())

	y2026 := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	y2027 := time.Date(2027, 1, 1, 0, 0, 1, 0, time.UTC)

	n1, err := s.NextOrderNumber(context.Background(), y2026)
	require.NoError(t, err)
	n2, err := s.NextOrderNumber(context.Background(), y2027)
	require.NoError(t, err)
	u1, err := s.NextUserNumber(context.Background(), y2026)
	require.NoError(t, err)

	assert.Equal(t, "ORD-2026-0000001", n1)
	assert.Equal(t, "ORD-2027-0000001", n2, "a new year restarts the counter")
	assert.Equal(t, "USR-2026-000001", u1, "prefixes do not share counters")
}

// Hammers the sequencer from many goroutines; every issued number must be
// unique.
func TestConcurrentAllocationsNeverCollide(t *testing.T) {
	s := NewSequencer(memory.NewSequenceStore())
	now := time.Now().UTC()

	const workers = 20
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n, err := s.NextOrderNumber(context.Background(), now)
				assert.NoError(t, err)

				mu.Lock()
				assert.False(t, seen[n], "duplicate order number %s", n)
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
