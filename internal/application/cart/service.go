package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcart "github.com/photoworks/printshop/app/internal/domain/cart"
	domcatalog "github.com/photoworks/printshop/app/internal/domain/catalog"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/observability"
	"github.com/photoworks/printshop/app/internal/observability/logctx"
)

// IDGenerator issues cart item ids.
type IDGenerator interface {
	NewID() string
}

// Service is the cart aggregator: it owns every cart mutation, re-validates
// print selections against the live catalog, and keeps the cached summary
// and the sliding TTL current.
type Service struct {
	carts   domcart.Repository
	photos  domphoto.Repository
	catalog domcatalog.Repository

	idGenerator    IDGenerator
	defaultTaxRate float64
	ttl            time.Duration

	log observability.Logger
}

func NewService(
	carts domcart.Repository,
	photos domphoto.Repository,
	catalog domcatalog.Repository,
	idGen IDGenerator,
	defaultTaxRate float64,
	ttl time.Duration,
	logger observability.Logger,
) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		carts:          carts,
		photos:         photos,
		catalog:        catalog,
		idGenerator:    idGen,
		defaultTaxRate: defaultTaxRate,
		ttl:            ttl,
		log:            logger.With(observability.F("component", "cart_service")),
	}
}

// SelectionInput names a size and quantity; the unit price always comes from
// the catalog, never from the client.
type SelectionInput struct {
	SizeCode string
	Quantity int
}

// AddItem puts a photo with its selections into the user's cart, replacing
// any existing item for the same photo.
func (s *Service) AddItem(ctx context.Context, userID, photoID string, selections []SelectionInput) (*domcart.Cart, error) {
	logger := logctx.FromOr(ctx, s.log)

	p, err := s.photos.Get(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID || p.Flags.IsDeleted {
		// Not-owned is reported as not-found so cart probing cannot reveal
		// other users' photos.
		return nil, domphoto.ErrNotFound
	}

	resolved, err := s.resolveSelections(ctx, selections)
	if err != nil {
		return nil, err
	}

	c, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := domcart.NewItem(s.idGenerator.NewID(), p.ID, p.FileName, resolved)
	if err != nil {
		return nil, err
	}
	replaced := c.UpsertItem(item)

	if err := s.finish(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("cart_item_added",
		observability.F("user_id", userID),
		observability.F("photo_id", photoID),
		observability.F("replaced", replaced),
	)
	return c, nil
}

// UpdateItem replaces an item's selections wholesale.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, selections []SelectionInput) (*domcart.Cart, error) {
	resolved, err := s.resolveSelections(ctx, selections)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateItem(itemID, resolved); err != nil {
		return nil, err
	}

	if err := s.finish(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*domcart.Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(itemID); err != nil {
		return nil, err
	}

	if err := s.finish(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domcart.Cart, error) {
	return s.carts.Get(ctx, userID)
}

func (s *Service) loadOrCreate(ctx context.Context, userID string) (*domcart.Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if errors.Is(err, domcart.ErrNotFound) {
		return domcart.New(userID, s.ttl), nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// resolveSelections validates every selection against the active catalog,
// all-or-nothing: one deactivated or unknown size code rejects the call.
func (s *Service) resolveSelections(ctx context.Context, selections []SelectionInput) ([]domcart.PrintSelection, error) {
	if len(selections) == 0 {
		return nil, domcart.ErrNoSelections
	}

	out := make([]domcart.PrintSelection, 0, len(selections))
	for _, in := range selections {
		size, err := s.catalog.GetByCode(ctx, in.SizeCode)
		if errors.Is(err, domcatalog.ErrNotFound) {
			return nil, domcart.ValidationError{Field: "sizeCode", Reason: fmt.Sprintf("unknown size %q", in.SizeCode)}
		}
		if err != nil {
			return nil, fmt.Errorf("cart: resolve size %s: %w", in.SizeCode, err)
		}
		if !size.Active {
			return nil, domcart.ValidationError{Field: "sizeCode", Reason: fmt.Sprintf("size %q is no longer available", in.SizeCode)}
		}

		sel, err := domcart.NewSelection(size.Code, size.Name, in.Quantity, size.BasePrice)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// finish recalculates the summary, slides the TTL, and persists — the
// mandatory tail of every successful mutation.
func (s *Service) finish(ctx context.Context, c *domcart.Cart) error {
	c.Recalculate(s.defaultTaxRate)
	c.Touch(s.ttl)
	if err := s.carts.Save(ctx, c); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}
