package worker

import (
	"context"
	"errors"
	"fmt"

	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	"github.com/photoworks/printshop/app/internal/domain/outbox"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/observability"
)

// updateAttempts bounds the reload-and-retry loop on version conflicts.
const updateAttempts = 3

// Worker finalizes an order's photo-cleanup block when the cleanup executor
// reports the physical deletes for that order.
type Worker struct {
	repo       domorder.Repository
	subscriber outbox.Subscriber
	log        observability.Logger
}

func New(repo domorder.Repository, subscriber outbox.Subscriber, logger observability.Logger) *Worker {
	return &Worker{
		repo:       repo,
		subscriber: subscriber,
		log:        logger,
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.repo == nil {
		return
	}
	w.subscriber.Subscribe(domphoto.CleanupCompletedEvent{}.EventName(), w.handleCleanupCompleted)
}

func (w *Worker) handleCleanupCompleted(ctx context.Context, e outbox.Event) error {
	evt, ok := e.(domphoto.CleanupCompletedEvent)
	if !ok {
		return nil
	}

	for attempt := 1; attempt <= updateAttempts; attempt++ {
		order, err := w.repo.Get(ctx, evt.OrderID)
		if err != nil {
			if errors.Is(err, domorder.ErrNotFound) {
				// Scheduled photos can reference orders removed by saga
				// compensation; nothing to finalize.
				return nil
			}
			w.logError("order_load_failed", evt.OrderID, err)
			return fmt.Errorf("order worker: find order: %w", err)
		}

		if order.Status != domorder.StatusCompleted {
			w.log.Warn("cleanup_finalize_skipped_not_completed",
				observability.F("order_id", order.ID),
				observability.F("status", string(order.Status)))
			return nil
		}

		order.FinalizePhotoCleanup(evt.PhotosDeleted, evt.StorageFreed, evt.OccurredAt)

		err = w.repo.Update(ctx, order)
		if errors.Is(err, domorder.ErrVersionConflict) && attempt < updateAttempts {
			continue
		}
		if err != nil {
			w.logError("order_update_failed", evt.OrderID, err)
			return fmt.Errorf("order worker: update order: %w", err)
		}

		w.log.Info("order_cleanup_finalized",
			observability.F("order_id", order.ID),
			observability.F("photos_deleted", evt.PhotosDeleted),
			observability.F("storage_freed_bytes", evt.StorageFreed))
		return nil
	}
	return fmt.Errorf("order worker: update order %s: version conflict persisted", evt.OrderID)
}

func (w *Worker) logError(msg string, orderID string, err error) {
	w.log.Error(msg, observability.F("order_id", orderID), observability.F("error", err.Error()))
}
