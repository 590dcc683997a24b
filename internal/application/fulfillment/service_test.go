package fulfillment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoworks/printshop/app/internal/application/retention"
	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domoutbox "github.com/photoworks/printshop/app/internal/domain/outbox"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/infrastructure/memory"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *capturingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	svc       *Service
	orders    *memory.OrderRepository
	photos    *memory.PhotoRepository
	publisher *capturingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	photos := memory.NewPhotoRepository()
	tracker := retention.NewTracker(photos, orders, retention.DefaultBuffer, nil)
	publisher := &capturingPublisher{}

	return &fixture{
		svc:       NewService(orders, tracker, publisher, nil),
		orders:    orders,
		photos:    photos,
		publisher: publisher,
	}
}

func (f *fixture) seedOrder(t *testing.T, orderID string, photoIDs ...string) *domorder.Order {
	t.Helper()

	items := make([]domorder.Item, 0, len(photoIDs))
	for _, photoID := range photoIDs {
		p, err := domphoto.New(photoID, "user-1", photoID+".jpg", "blob-"+photoID, 1024)
		require.NoError(t, err)
		require.NoError(t, f.photos.Insert(context.Background(), p))

		items = append(items, domorder.Item{
			PhotoID:  photoID,
			FileName: photoID + ".jpg",
			Selections: []domorder.PrintSelection{
				{SizeCode: "4x6", SizeName: "4x6", Quantity: 1, UnitPrice: 0.29, Subtotal: 0.29},
			},
			PhotoTotal: 0.29,
		})
	}

	ord, err := domorder.New(orderID, "ORD-2026-"+orderID, "user-1", "", "MA",
		items,
		domorder.Pricing{Subtotal: 0.29, TaxRate: 0.0625, TaxAmount: 0.018125, Total: 0.308125},
		domorder.Payment{Method: domorder.PaymentBranch, Status: domorder.PaymentPending},
	)
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(context.Background(), ord))

	// Mirror checkout: photos are bound when the order is created.
	for _, photoID := range photoIDs {
		p, err := f.photos.Get(context.Background(), photoID)
		require.NoError(t, err)
		p.MarkOrdered(ord.ID, time.Now().UTC())
		require.NoError(t, f.photos.Update(context.Background(), p))
	}
	return ord
}

func (f *fixture) advance(t *testing.T, orderID string, targets ...domorder.Status) *UpdateStatusResult {
	t.Helper()

	var result *UpdateStatusResult
	for _, target := range targets {
		var err error
		result, err = f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID: orderID,
			Target:  target,
			AdminID: "admin-1",
		})
		require.NoError(t, err, "transition to %s", target)
	}
	return result
}

func TestFullLifecycleSchedulesRetention(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-1", "photo-2")

	result := f.advance(t, "order-1",
		domorder.StatusPaymentVerified,
		domorder.StatusProcessing,
		domorder.StatusPrinted,
		domorder.StatusShipped,
		domorder.StatusCompleted,
	)

	assert.Equal(t, domorder.StatusCompleted, result.Order.Status)
	assert.Equal(t, 2, result.PhotosScheduled)
	require.NotNil(t, result.ScheduledFor)

	wantDelay := retention.DefaultBuffer
	gotDelay := time.Until(*result.ScheduledFor)
	assert.InDelta(t, wantDelay.Hours(), gotDelay.Hours(), 0.1)

	for _, photoID := range []string{"photo-1", "photo-2"} {
		p, err := f.photos.Get(context.Background(), photoID)
		require.NoError(t, err)
		assert.True(t, p.Flags.IsPendingDeletion)
		require.NotNil(t, p.Flags.DeletionScheduledFor)
	}

	// order.completed carries the scheduling facts for downstream consumers.
	require.Len(t, f.publisher.events, 1)
	evt, ok := f.publisher.events[0].(domorder.CompletedEvent)
	require.True(t, ok)
	assert.Equal(t, 2, evt.PhotosScheduled)
}

func TestCompletionSkipsPhotoHeldByActiveOrder(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-shared")

	// A second, still-active order references the same photo.
	other := f.seedOrder(t, "order-2", "photo-solo")
	p, err := f.photos.Get(context.Background(), "photo-shared")
	require.NoError(t, err)
	p.MarkOrdered(other.ID, time.Now().UTC())
	require.NoError(t, f.photos.Update(context.Background(), p))

	result := f.advance(t, "order-1",
		domorder.StatusPaymentVerified,
		domorder.StatusProcessing,
		domorder.StatusPrinted,
		domorder.StatusCompleted,
	)

	assert.Equal(t, 0, result.PhotosScheduled)

	p, err = f.photos.Get(context.Background(), "photo-shared")
	require.NoError(t, err)
	assert.False(t, p.Flags.IsPendingDeletion, "photo held by an active order must not be scheduled")
}

func TestInvalidTransitionRejectedWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-1")

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: "order-1",
		Target:  domorder.StatusShipped,
		AdminID: "admin-1",
	})

	var te *domorder.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domorder.StatusPending, te.From)
	assert.Equal(t, domorder.StatusShipped, te.To)

	stored, getErr := f.orders.Get(context.Background(), "order-1")
	require.NoError(t, getErr)
	assert.Equal(t, domorder.StatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version, "rejected transition must not write")
}

func TestUnknownTargetStatus(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-1")

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: "order-1",
		Target:  domorder.Status("exploded"),
		AdminID: "admin-1",
	})
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = f.svc.ListByStatus(context.Background(), domorder.Status("exploded"))
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestStaleVersionRejected(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-1")

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:         "order-1",
		Target:          domorder.StatusPaymentVerified,
		AdminID:         "admin-1",
		ExpectedVersion: 99,
	})
	assert.ErrorIs(t, err, domorder.ErrVersionConflict)
}

func TestNotesAreAppended(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-1")

	result, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: "order-1",
		Target:  domorder.StatusPaymentVerified,
		AdminID: "admin-9",
		Note:    "verified via bank slip",
	})
	require.NoError(t, err)

	require.Len(t, result.Order.Fulfillment.Notes, 1)
	note := result.Order.Fulfillment.Notes[0]
	assert.Equal(t, "admin-9", note.By)
	assert.Equal(t, "verified via bank slip", note.Text)
}

func TestShippedRecordsTrackingNumber(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", "photo-1")

	f.advance(t, "order-1",
		domorder.StatusPaymentVerified,
		domorder.StatusProcessing,
		domorder.StatusPrinted,
	)
	result, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:        "order-1",
		Target:         domorder.StatusShipped,
		AdminID:        "admin-1",
		TrackingNumber: "1Z999AA10123456784",
	})
	require.NoError(t, err)
	assert.Equal(t, "1Z999AA10123456784", result.Order.Fulfillment.TrackingNumber)
}
