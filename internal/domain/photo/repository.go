package photo

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, photo *Photo) error
	Get(ctx context.Context, id string) (*Photo, error)
	Update(ctx context.Context, photo *Photo) error
	ListByIDs(ctx context.Context, ids []string) ([]*Photo, error)
	// ListDueForCleanup is the executor's work queue: photos flagged pending
	// whose deletion window elapsed before the given instant.
	ListDueForCleanup(ctx context.Context, before time.Time) ([]*Photo, error)
}
