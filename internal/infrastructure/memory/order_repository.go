package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/photoworks/printshop/app/internal/domain/order"
)

type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	byNumber    map[string]string
	idempotency map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		byNumber:    make(map[string]string),
		idempotency: make(map[string]string),
	}
}

func idemKey(userID, key string) string { return userID + "\x00" + key }

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byNumber[order.Number]; exists {
		return domain.ErrConflict
	}
	if order.IdempotencyKey != "" {
		if existingID, exists := r.idempotency[idemKey(order.UserID, order.IdempotencyKey)]; exists {
			if _, ok := r.orders[existingID]; ok {
				return domain.ErrConflict
			}
		}
	}

	r.orders[order.ID] = order.Clone()
	r.byNumber[order.Number] = order.ID
	if order.IdempotencyKey != "" {
		r.idempotency[idemKey(order.UserID, order.IdempotencyKey)] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

// Update is an optimistic write: the incoming version must match the stored
// one, and the stored copy (and the caller's) are bumped on success.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if stored.Version != order.Version {
		return domain.ErrVersionConflict
	}

	order.Version++
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.orders, id)
	delete(r.byNumber, order.Number)
	if order.IdempotencyKey != "" {
		delete(r.idempotency, idemKey(order.UserID, order.IdempotencyKey))
	}
	return nil
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, order := range r.orders {
		if order.Status == status {
			out = append(out, order.Clone())
		}
	}
	return out, nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idemKey(userID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}
