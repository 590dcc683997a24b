package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/observability"
	"github.com/photoworks/printshop/app/internal/observability/logctx"
)

// DefaultBuffer is the delay between order completion and a photo becoming
// eligible for physical deletion.
const DefaultBuffer = 7 * 24 * time.Hour

// Tracker guards photo retention: photos referenced by any order can never be
// user-deleted, and deletion is only scheduled once no active order still
// needs the photo.
type Tracker struct {
	photos domphoto.Repository
	orders domorder.Repository
	buffer time.Duration

	log observability.Logger
}

func NewTracker(photos domphoto.Repository, orders domorder.Repository, buffer time.Duration, logger observability.Logger) *Tracker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Tracker{
		photos: photos,
		orders: orders,
		buffer: buffer,
		log:    logger.With(observability.F("component", "retention_tracker")),
	}
}

// MarkOrdered binds every photo to the order. Idempotent per (photo, order):
// re-binding an already bound pair changes nothing. Partial failure returns
// the ids already bound so the caller can compensate.
func (t *Tracker) MarkOrdered(ctx context.Context, photoIDs []string, orderID string) (bound []string, err error) {
	now := time.Now().UTC()
	for _, id := range photoIDs {
		p, getErr := t.photos.Get(ctx, id)
		if getErr != nil {
			return bound, fmt.Errorf("retention: load photo %s: %w", id, getErr)
		}
		if !p.MarkOrdered(orderID, now) {
			continue
		}
		if updErr := t.photos.Update(ctx, p); updErr != nil {
			return bound, fmt.Errorf("retention: bind photo %s: %w", id, updErr)
		}
		bound = append(bound, id)
	}
	return bound, nil
}

// Unbind is the compensating step of the checkout saga: it removes the order
// reference from each photo. Failures are collected, not fatal, so one bad
// photo does not leave the rest bound.
func (t *Tracker) Unbind(ctx context.Context, photoIDs []string, orderID string) error {
	logger := logctx.FromOr(ctx, t.log)

	var firstErr error
	for _, id := range photoIDs {
		p, err := t.photos.Get(ctx, id)
		if err != nil {
			logger.Error("retention_unbind_load_failed",
				observability.F("photo_id", id),
				observability.F("order_id", orderID),
				observability.F("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !p.Unbind(orderID) {
			continue
		}
		if err := t.photos.Update(ctx, p); err != nil {
			logger.Error("retention_unbind_update_failed",
				observability.F("photo_id", id),
				observability.F("order_id", orderID),
				observability.F("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// UserDelete performs a direct, user-initiated hard delete. It is refused for
// any photo referenced by an order, owner included. A photo owned by someone
// else is reported as not-found, identically to a missing one.
func (t *Tracker) UserDelete(ctx context.Context, userID, photoID string) error {
	p, err := t.photos.Get(ctx, photoID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return domphoto.ErrNotFound
	}
	if err := p.EnsureUserDeletable(); err != nil {
		return err
	}

	p.MarkDeleted()
	if err := t.photos.Update(ctx, p); err != nil {
		return fmt.Errorf("retention: delete photo %s: %w", photoID, err)
	}
	return nil
}

// ScheduleResult reports what completion scheduling did.
type ScheduleResult struct {
	PhotosScheduled int
	Skipped         int
	ScheduledFor    time.Time
}

// ScheduleDeletion marks the completed order's photos for deferred deletion.
// A photo still referenced by another non-terminal order is skipped; it will
// be scheduled when its last active order completes.
func (t *Tracker) ScheduleDeletion(ctx context.Context, ord *domorder.Order) (*ScheduleResult, error) {
	logger := logctx.FromOr(ctx, t.log)

	scheduledFor := time.Now().UTC().Add(t.buffer)
	result := &ScheduleResult{ScheduledFor: scheduledFor}

	photos, err := t.photos.ListByIDs(ctx, ord.PhotoIDs())
	if err != nil {
		return nil, fmt.Errorf("retention: load order photos: %w", err)
	}

	for _, p := range photos {
		held, err := t.heldByActiveOrder(ctx, p, ord.ID)
		if err != nil {
			return nil, err
		}
		if held {
			result.Skipped++
			logger.Info("retention_schedule_skipped",
				observability.F("photo_id", p.ID),
				observability.F("order_id", ord.ID),
			)
			continue
		}

		p.ScheduleDeletion(scheduledFor)
		if err := t.photos.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("retention: schedule photo %s: %w", p.ID, err)
		}
		result.PhotosScheduled++
	}

	logger.Info("retention_scheduled",
		observability.F("order_id", ord.ID),
		observability.F("photos_scheduled", result.PhotosScheduled),
		observability.F("skipped", result.Skipped),
		observability.F("scheduled_for", scheduledFor),
	)
	return result, nil
}

// heldByActiveOrder reports whether any other order referencing the photo is
// still in a non-terminal status. An order that no longer exists does not
// hold the photo.
func (t *Tracker) heldByActiveOrder(ctx context.Context, p *domphoto.Photo, completingOrderID string) (bool, error) {
	for _, otherID := range p.OtherOrders(completingOrderID) {
		other, err := t.orders.Get(ctx, otherID)
		if errors.Is(err, domorder.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("retention: load order %s: %w", otherID, err)
		}
		if !other.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}
