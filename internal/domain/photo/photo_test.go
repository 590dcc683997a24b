package photo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPhoto(t *testing.T) *Photo {
	t.Helper()
	p, err := New("photo-1", "user-1", "a.jpg", "blob-1", 2048)
	require.NoError(t, err)
	return p
}

func TestMarkOrderedIsIdempotent(t *testing.T) {
	p := newPhoto(t)
	now := time.Now().UTC()

	assert.True(t, p.MarkOrdered("order-1", now))
	assert.False(t, p.MarkOrdered("order-1", now), "re-binding the same order must be a no-op")

	assert.True(t, p.OrderInfo.IsOrdered)
	assert.Equal(t, []string{"order-1"}, p.OrderInfo.OrderedIn)

	assert.True(t, p.MarkOrdered("order-2", now))
	assert.Equal(t, []string{"order-1", "order-2"}, p.OrderInfo.OrderedIn)
}

func TestUnbindClearsOrderedFlagWhenEmpty(t *testing.T) {
	p := newPhoto(t)
	now := time.Now().UTC()
	p.MarkOrdered("order-1", now)
	p.MarkOrdered("order-2", now)

	assert.True(t, p.Unbind("order-1"))
	assert.True(t, p.OrderInfo.IsOrdered)

	assert.True(t, p.Unbind("order-2"))
	assert.False(t, p.OrderInfo.IsOrdered)

	assert.False(t, p.Unbind("order-2"), "unbinding an absent order is a no-op")
}

func TestEnsureUserDeletable(t *testing.T) {
	p := newPhoto(t)
	require.NoError(t, p.EnsureUserDeletable())

	p.MarkOrdered("order-1", time.Now().UTC())
	assert.ErrorIs(t, p.EnsureUserDeletable(), ErrInUse)

	// The rule holds even after the referencing order is long gone from the
	// active set; only an explicit unbind releases it.
	p.Unbind("order-1")
	require.NoError(t, p.EnsureUserDeletable())

	p.MarkDeleted()
	assert.ErrorIs(t, p.EnsureUserDeletable(), ErrDeleted)
}

func TestDueForCleanup(t *testing.T) {
	p := newPhoto(t)
	now := time.Now().UTC()

	assert.False(t, p.DueForCleanup(now), "unscheduled photo is never due")

	p.ScheduleDeletion(now.Add(time.Hour))
	assert.False(t, p.DueForCleanup(now))
	assert.True(t, p.DueForCleanup(now.Add(2*time.Hour)))

	p.MarkDeleted()
	assert.False(t, p.DueForCleanup(now.Add(2*time.Hour)), "deleted photo leaves the queue")
	assert.False(t, p.Flags.IsPendingDeletion)
}

func TestOtherOrders(t *testing.T) {
	p := newPhoto(t)
	now := time.Now().UTC()
	p.MarkOrdered("order-1", now)
	p.MarkOrdered("order-2", now)
	p.MarkOrdered("order-3", now)

	assert.ElementsMatch(t, []string{"order-1", "order-3"}, p.OtherOrders("order-2"))
	assert.Empty(t, newPhoto(t).OtherOrders("order-1"))
}

func TestCloneIsDeep(t *testing.T) {
	p := newPhoto(t)
	p.MarkOrdered("order-1", time.Now().UTC())

	clone := p.Clone()
	clone.OrderInfo.OrderedIn[0] = "mutated"

	assert.Equal(t, "order-1", p.OrderInfo.OrderedIn[0])
}
