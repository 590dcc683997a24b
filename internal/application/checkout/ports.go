package checkout

import (
	"context"
	"time"
)

type IDGenerator interface {
	NewID() string
}

// NumberSource allocates the next human-readable order number.
type NumberSource interface {
	NextOrderNumber(ctx context.Context, now time.Time) (string, error)
}

// TaxRateLookup resolves the sales-tax rate for a shipping state.
// Implementations fall back to a configured default, then to the hard-coded
// statutory default, rather than failing checkout over a rate table.
type TaxRateLookup interface {
	Rate(ctx context.Context, state string) (float64, error)
}

// PhotoBinder is the retention tracker surface the saga needs: bind photos to
// the new order, and unbind them again when a later step fails.
type PhotoBinder interface {
	MarkOrdered(ctx context.Context, photoIDs []string, orderID string) (bound []string, err error)
	Unbind(ctx context.Context, photoIDs []string, orderID string) error
}
