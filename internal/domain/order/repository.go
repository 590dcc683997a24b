package order

import "context"

type Repository interface {
	// Insert fails with ErrConflict when the order number or the
	// (user, idempotency key) pair already exists.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// Update applies an optimistic write: it fails with ErrVersionConflict
	// unless the order's Version matches the stored one, and bumps the
	// version on success.
	Update(ctx context.Context, order *Order) error
	// Delete removes an order outright. Only the checkout saga uses it, as
	// the compensating step when photo binding fails.
	Delete(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, status Status) ([]*Order, error)
	FindByIdempotency(ctx context.Context, userID, key string) (*Order, error)
}
