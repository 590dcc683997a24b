// Package cleanup runs the scheduled physical deletion of photos whose
// retention window has lapsed.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/photoworks/printshop/app/internal/domain/outbox"
	"github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/observability"
)

// DefaultSchedule polls the due queue once an hour.
const DefaultSchedule = "@every 1h"

const runTimeout = 2 * time.Minute

// BlobStore deletes photo binaries. Delete must be idempotent so a crashed
// run can be replayed.
type BlobStore interface {
	Delete(ctx context.Context, blobID string) error
}

// Executor is the cleanup worker. Each run drains the due queue: delete the
// blob, mark the metadata record deleted, then report per-order totals on the
// bus so the owning order's cleanup block gets finalized.
type Executor struct {
	photos    photo.Repository
	blobs     BlobStore
	publisher outbox.Publisher
	cron      *cron.Cron
	schedule  string
	logger    observability.Logger
	metrics   observability.Metrics
}

func NewExecutor(
	photos photo.Repository,
	blobs BlobStore,
	publisher outbox.Publisher,
	schedule string,
	logger observability.Logger,
	metrics observability.Metrics,
) *Executor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Executor{
		photos:    photos,
		blobs:     blobs,
		publisher: publisher,
		cron:      cron.New(),
		schedule:  schedule,
		logger:    logger,
		metrics:   metrics,
	}
}

func (e *Executor) Start() error {
	_, err := e.cron.AddFunc(e.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, err := e.RunOnce(ctx); err != nil {
			e.logger.Error("cleanup run failed", observability.F("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("cleanup: schedule %q: %w", e.schedule, err)
	}
	e.cron.Start()
	e.logger.Info("cleanup executor started", observability.F("schedule", e.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (e *Executor) Stop() {
	<-e.cron.Stop().Done()
	e.logger.Info("cleanup executor stopped")
}

// RunStats summarizes one executor run.
type RunStats struct {
	PhotosDeleted int
	StorageFreed  int64
	Failed        int
}

type orderTotals struct {
	photos  int
	storage int64
}

// RunOnce processes every photo due as of now. A failure on one photo is
// logged and skipped; the photo stays in the queue for the next run.
func (e *Executor) RunOnce(ctx context.Context) (RunStats, error) {
	now := time.Now().UTC()

	due, err := e.photos.ListDueForCleanup(ctx, now)
	if err != nil {
		return RunStats{}, fmt.Errorf("cleanup: list due: %w", err)
	}
	if len(due) == 0 {
		return RunStats{}, nil
	}

	var stats RunStats
	perOrder := map[string]*orderTotals{}

	for _, p := range due {
		if err := e.deleteOne(ctx, p); err != nil {
			stats.Failed++
			e.logger.Error("photo cleanup failed",
				observability.F("photo_id", p.ID),
				observability.F("error", err.Error()))
			continue
		}

		stats.PhotosDeleted++
		stats.StorageFreed += p.SizeBytes
		for _, orderID := range p.OrderInfo.OrderedIn {
			t := perOrder[orderID]
			if t == nil {
				t = &orderTotals{}
				perOrder[orderID] = t
			}
			t.photos++
			t.storage += p.SizeBytes
		}
	}

	e.metrics.Counter(observability.MPhotosCleaned).Add(float64(stats.PhotosDeleted))
	e.metrics.Counter(observability.MCleanupStorageFreed).Add(float64(stats.StorageFreed))

	for orderID, t := range perOrder {
		evt := photo.CleanupCompletedEvent{
			OrderID:       orderID,
			PhotosDeleted: t.photos,
			StorageFreed:  t.storage,
			OccurredAt:    now,
		}
		if err := e.publisher.Publish(ctx, evt); err != nil {
			e.logger.Error("publish cleanup completed failed",
				observability.F("order_id", orderID),
				observability.F("error", err.Error()))
		}
	}

	e.logger.Info("cleanup run finished",
		observability.F("deleted", stats.PhotosDeleted),
		observability.F("failed", stats.Failed),
		observability.F("storage_freed_bytes", stats.StorageFreed))
	return stats, nil
}

func (e *Executor) deleteOne(ctx context.Context, p *photo.Photo) error {
	if err := e.blobs.Delete(ctx, p.BlobID); err != nil {
		return fmt.Errorf("delete blob %s: %w", p.BlobID, err)
	}
	p.MarkDeleted()
	if err := e.photos.Update(ctx, p); err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	return nil
}
