package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/photoworks/printshop/app/internal/domain/cart"
)

type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]*domain.Cart)}
}

// Get returns the user's cart. An expired cart is dropped on read, mirroring
// a TTL index in the backing store.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if cart.Expired(time.Now().UTC()) {
		delete(r.carts, userID)
		return nil, domain.ErrNotFound
	}
	return cart.Clone(), nil
}

func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	_ = ctx
	if cart == nil || cart.UserID == "" {
		return domain.ValidationError{Field: "userId", Reason: "required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.UserID] = cart.Clone()
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}
