package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	domain "github.com/photoworks/printshop/app/internal/domain/cart"
)

const keyPrefix = "cart:"

// CartStore keeps carts in Redis. The cart's sliding 14-day expiry maps
// directly onto the key TTL, so abandoned carts disappear without a sweeper.
type CartStore struct {
	client *goredis.Client
}

func NewCartStore(client *goredis.Client) *CartStore {
	return &CartStore{client: client}
}

func (s *CartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, err := s.client.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cart store: get: %w", err)
	}

	var c domain.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("cart store: decode: %w", err)
	}
	return &c, nil
}

func (s *CartStore) Save(ctx context.Context, c *domain.Cart) error {
	if c == nil || c.UserID == "" {
		return domain.ValidationError{Field: "userId", Reason: "required"}
	}

	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		// Already expired; saving would create a key that never dies.
		return s.Delete(ctx, c.UserID)
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart store: encode: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+c.UserID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cart store: set: %w", err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("cart store: del: %w", err)
	}
	return nil
}
