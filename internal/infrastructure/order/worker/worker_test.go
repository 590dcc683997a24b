package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	"github.com/photoworks/printshop/app/internal/domain/outbox"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/infrastructure/memory"
	"github.com/photoworks/printshop/app/internal/observability"
)

type capturingSubscriber struct {
	handlers map[string]outbox.Handler
}

func (s *capturingSubscriber) Subscribe(eventName string, h outbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]outbox.Handler)
	}
	s.handlers[eventName] = h
}

func seedOrder(t *testing.T, repo *memory.OrderRepository, id string, status domorder.Status) {
	t.Helper()
	o, err := domorder.New(id, "ORD-2026-"+id, "user-1", "", "MA",
		[]domorder.Item{{
			PhotoID:    "photo-1",
			Selections: []domorder.PrintSelection{{SizeCode: "4x6", Quantity: 1, UnitPrice: 0.29, Subtotal: 0.29}},
			PhotoTotal: 0.29,
		}},
		domorder.Pricing{Subtotal: 0.29, TaxRate: 0.0625, TaxAmount: 0.018125, Total: 0.308125},
		domorder.Payment{Method: domorder.PaymentBranch, Status: domorder.PaymentPending},
	)
	require.NoError(t, err)
	o.Status = status
	require.NoError(t, repo.Insert(context.Background(), o))
}

func cleanupEvent(orderID string) domphoto.CleanupCompletedEvent {
	return domphoto.CleanupCompletedEvent{
		OrderID:       orderID,
		PhotosDeleted: 3,
		StorageFreed:  4096,
		OccurredAt:    time.Now().UTC(),
	}
}

func TestFinalizesCompletedOrder(t *testing.T) {
	repo := memory.NewOrderRepository()
	sub := &capturingSubscriber{}
	seedOrder(t, repo, "order-1", domorder.StatusCompleted)

	New(repo, sub, observability.NopLogger()).Start()
	handler := sub.handlers["photo.cleanup_completed"]
	require.NotNil(t, handler)

	require.NoError(t, handler(context.Background(), cleanupEvent("order-1")))

	stored, err := repo.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, stored.PhotoCleanup.IsCompleted)
	assert.Equal(t, 3, stored.PhotoCleanup.PhotosDeleted)
	assert.Equal(t, int64(4096), stored.PhotoCleanup.StorageFreed)
	require.NotNil(t, stored.PhotoCleanup.CleanupAt)
}

func TestSkipsNonCompletedOrder(t *testing.T) {
	repo := memory.NewOrderRepository()
	sub := &capturingSubscriber{}
	seedOrder(t, repo, "order-1", domorder.StatusProcessing)

	New(repo, sub, observability.NopLogger()).Start()
	require.NoError(t, sub.handlers["photo.cleanup_completed"](context.Background(), cleanupEvent("order-1")))

	stored, err := repo.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.False(t, stored.PhotoCleanup.IsCompleted)
}

func TestMissingOrderIsNotAnError(t *testing.T) {
	repo := memory.NewOrderRepository()
	sub := &capturingSubscriber{}

	New(repo, sub, observability.NopLogger()).Start()
	assert.NoError(t, sub.handlers["photo.cleanup_completed"](context.Background(), cleanupEvent("order-gone")))
}

// conflictingRepo fails the first update with a version conflict, as if a
// concurrent admin write landed between the worker's read and write.
type conflictingRepo struct {
	*memory.OrderRepository
	conflicts int
}

func (r *conflictingRepo) Update(ctx context.Context, o *domorder.Order) error {
	if r.conflicts > 0 {
		r.conflicts--
		return domorder.ErrVersionConflict
	}
	return r.OrderRepository.Update(ctx, o)
}

func TestRetriesOnVersionConflict(t *testing.T) {
	repo := &conflictingRepo{OrderRepository: memory.NewOrderRepository(), conflicts: 1}
	sub := &capturingSubscriber{}
	seedOrder(t, repo.OrderRepository, "order-1", domorder.StatusCompleted)

	New(repo, sub, observability.NopLogger()).Start()
	require.NoError(t, sub.handlers["photo.cleanup_completed"](context.Background(), cleanupEvent("order-1")))

	stored, err := repo.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, stored.PhotoCleanup.IsCompleted)
}

func TestGivesUpAfterPersistentConflicts(t *testing.T) {
	repo := &conflictingRepo{OrderRepository: memory.NewOrderRepository(), conflicts: 100}
	sub := &capturingSubscriber{}
	seedOrder(t, repo.OrderRepository, "order-1", domorder.StatusCompleted)

	New(repo, sub, observability.NopLogger()).Start()
	err := sub.handlers["photo.cleanup_completed"](context.Background(), cleanupEvent("order-1"))
	assert.Error(t, err)
}
