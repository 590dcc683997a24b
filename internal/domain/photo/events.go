package photo

import "time"

// CleanupCompletedEvent is emitted by the cleanup executor after it has
// physically deleted an order's due photos, so the order's cleanup block can
// be finalized.
type CleanupCompletedEvent struct {
	OrderID       string
	PhotosDeleted int
	StorageFreed  int64
	OccurredAt    time.Time
}

func (CleanupCompletedEvent) EventName() string { return "photo.cleanup_completed" }
