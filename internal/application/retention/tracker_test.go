package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/infrastructure/memory"
)

type fixture struct {
	tracker *Tracker
	photos  *memory.PhotoRepository
	orders  *memory.OrderRepository
}

func newFixture(t *testing.T, buffer time.Duration) *fixture {
	t.Helper()
	photos := memory.NewPhotoRepository()
	orders := memory.NewOrderRepository()
	return &fixture{
		tracker: NewTracker(photos, orders, buffer, nil),
		photos:  photos,
		orders:  orders,
	}
}

func (f *fixture) seedPhoto(t *testing.T, photoID, userID string) {
	t.Helper()
	p, err := domphoto.New(photoID, userID, photoID+".jpg", "blob-"+photoID, 1024)
	require.NoError(t, err)
	require.NoError(t, f.photos.Insert(context.Background(), p))
}

func (f *fixture) seedOrder(t *testing.T, orderID string, status domorder.Status, photoIDs ...string) *domorder.Order {
	t.Helper()

	items := make([]domorder.Item, 0, len(photoIDs))
	for _, photoID := range photoIDs {
		items = append(items, domorder.Item{
			PhotoID:    photoID,
			FileName:   photoID + ".jpg",
			Selections: []domorder.PrintSelection{{SizeCode: "4x6", Quantity: 1, UnitPrice: 0.29, Subtotal: 0.29}},
			PhotoTotal: 0.29,
		})
	}
	ord, err := domorder.New(orderID, "ORD-2026-"+orderID, "user-1", "", "MA",
		items,
		domorder.Pricing{Subtotal: 0.29, TaxRate: 0.0625, TaxAmount: 0.018125, Total: 0.308125},
		domorder.Payment{Method: domorder.PaymentBranch, Status: domorder.PaymentPending},
	)
	require.NoError(t, err)
	ord.Status = status
	require.NoError(t, f.orders.Insert(context.Background(), ord))
	return ord
}

func TestMarkOrderedIsIdempotentPerOrder(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-1", "user-1")
	f.seedPhoto(t, "photo-2", "user-1")

	bound, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-1", "photo-2"}, "order-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"photo-1", "photo-2"}, bound)

	// A retry binds nothing new.
	bound, err = f.tracker.MarkOrdered(context.Background(), []string{"photo-1", "photo-2"}, "order-1")
	require.NoError(t, err)
	assert.Empty(t, bound)

	p, err := f.photos.Get(context.Background(), "photo-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"order-1"}, p.OrderInfo.OrderedIn)
}

func TestMarkOrderedReportsPartialBinding(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-1", "user-1")

	bound, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-1", "photo-missing"}, "order-1")
	require.Error(t, err)
	assert.Equal(t, []string{"photo-1"}, bound, "caller needs the bound set to compensate")
}

func TestUnbindReleasesPhotos(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-1", "user-1")

	_, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-1"}, "order-1")
	require.NoError(t, err)
	require.NoError(t, f.tracker.Unbind(context.Background(), []string{"photo-1"}, "order-1"))

	p, err := f.photos.Get(context.Background(), "photo-1")
	require.NoError(t, err)
	assert.False(t, p.OrderInfo.IsOrdered)
	assert.Empty(t, p.OrderInfo.OrderedIn)
}

func TestUserDeleteRefusedForOrderedPhoto(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-1", "user-1")

	_, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-1"}, "order-1")
	require.NoError(t, err)

	err = f.tracker.UserDelete(context.Background(), "user-1", "photo-1")
	assert.ErrorIs(t, err, domphoto.ErrInUse)

	p, getErr := f.photos.Get(context.Background(), "photo-1")
	require.NoError(t, getErr)
	assert.False(t, p.Flags.IsDeleted)
}

func TestUserDeleteOwnershipAndSuccess(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-1", "user-1")

	// Someone else's photo reads as not-found.
	err := f.tracker.UserDelete(context.Background(), "user-2", "photo-1")
	assert.ErrorIs(t, err, domphoto.ErrNotFound)

	require.NoError(t, f.tracker.UserDelete(context.Background(), "user-1", "photo-1"))

	p, err := f.photos.Get(context.Background(), "photo-1")
	require.NoError(t, err)
	assert.True(t, p.Flags.IsDeleted)

	err = f.tracker.UserDelete(context.Background(), "user-1", "photo-1")
	assert.ErrorIs(t, err, domphoto.ErrDeleted)
}

func TestScheduleDeletionUsesBuffer(t *testing.T) {
	buffer := 48 * time.Hour
	f := newFixture(t, buffer)
	f.seedPhoto(t, "photo-1", "user-1")

	ord := f.seedOrder(t, "order-1", domorder.StatusCompleted, "photo-1")
	_, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-1"}, ord.ID)
	require.NoError(t, err)

	result, err := f.tracker.ScheduleDeletion(context.Background(), ord)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PhotosScheduled)
	assert.Equal(t, 0, result.Skipped)
	assert.InDelta(t, buffer.Hours(), time.Until(result.ScheduledFor).Hours(), 0.1)
}

func TestScheduleDeletionSkipsPhotosHeldByActiveOrders(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-shared", "user-1")
	f.seedPhoto(t, "photo-solo", "user-1")

	completing := f.seedOrder(t, "order-1", domorder.StatusCompleted, "photo-shared", "photo-solo")
	active := f.seedOrder(t, "order-2", domorder.StatusProcessing, "photo-shared")

	_, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-shared", "photo-solo"}, completing.ID)
	require.NoError(t, err)
	_, err = f.tracker.MarkOrdered(context.Background(), []string{"photo-shared"}, active.ID)
	require.NoError(t, err)

	result, err := f.tracker.ScheduleDeletion(context.Background(), completing)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PhotosScheduled)
	assert.Equal(t, 1, result.Skipped)

	shared, err := f.photos.Get(context.Background(), "photo-shared")
	require.NoError(t, err)
	assert.False(t, shared.Flags.IsPendingDeletion)

	solo, err := f.photos.Get(context.Background(), "photo-solo")
	require.NoError(t, err)
	assert.True(t, solo.Flags.IsPendingDeletion)
}

func TestScheduleDeletionIgnoresTerminalAndMissingOrders(t *testing.T) {
	f := newFixture(t, 0)
	f.seedPhoto(t, "photo-1", "user-1")

	completing := f.seedOrder(t, "order-1", domorder.StatusCompleted, "photo-1")
	cancelled := f.seedOrder(t, "order-2", domorder.StatusCancelled, "photo-1")

	_, err := f.tracker.MarkOrdered(context.Background(), []string{"photo-1"}, completing.ID)
	require.NoError(t, err)
	_, err = f.tracker.MarkOrdered(context.Background(), []string{"photo-1"}, cancelled.ID)
	require.NoError(t, err)

	// A third reference to an order that no longer exists must not block.
	p, err := f.photos.Get(context.Background(), "photo-1")
	require.NoError(t, err)
	p.MarkOrdered("order-gone", time.Now().UTC())
	require.NoError(t, f.photos.Update(context.Background(), p))

	result, err := f.tracker.ScheduleDeletion(context.Background(), completing)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PhotosScheduled)
	assert.Equal(t, 0, result.Skipped)
}
