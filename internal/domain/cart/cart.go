package cart

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is the sliding expiry window for an idle cart.
const DefaultTTL = 14 * 24 * time.Hour

var (
	ErrNotFound     = errors.New("cart: not found")
	ErrEmpty        = errors.New("cart: no items to check out")
	ErrItemNotFound = errors.New("cart: item not found")
	ErrNoSelections = errors.New("cart: at least one print selection is required")
)

// ValidationError reports a field-level problem with a cart mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cart: invalid %s: %s", e.Field, e.Reason)
}

// PrintSelection is one (size, quantity, price) tuple inside a cart item.
// UnitPrice is captured from the catalog at selection time; it is re-captured
// on every cart mutation and only becomes final when an order freezes it.
type PrintSelection struct {
	SizeCode  string
	SizeName  string
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

func NewSelection(sizeCode, sizeName string, quantity int, unitPrice float64) (PrintSelection, error) {
	if sizeCode == "" {
		return PrintSelection{}, ValidationError{Field: "sizeCode", Reason: "required"}
	}
	if quantity <= 0 {
		return PrintSelection{}, ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if unitPrice <= 0 {
		return PrintSelection{}, ValidationError{Field: "unitPrice", Reason: "must be greater than zero"}
	}
	return PrintSelection{
		SizeCode:  sizeCode,
		SizeName:  sizeName,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: float64(quantity) * unitPrice,
	}, nil
}

// Item is one photo plus its print selections.
type Item struct {
	ID         string
	PhotoID    string
	FileName   string
	Selections []PrintSelection
	PhotoTotal float64
	AddedAt    time.Time
}

func NewItem(id, photoID, fileName string, selections []PrintSelection) (Item, error) {
	if photoID == "" {
		return Item{}, ValidationError{Field: "photoId", Reason: "required"}
	}
	if len(selections) == 0 {
		return Item{}, ErrNoSelections
	}

	item := Item{
		ID:         id,
		PhotoID:    photoID,
		FileName:   fileName,
		Selections: append([]PrintSelection(nil), selections...),
		AddedAt:    time.Now().UTC(),
	}
	item.PhotoTotal = totalOf(item.Selections)
	return item, nil
}

func totalOf(selections []PrintSelection) float64 {
	var total float64
	for _, s := range selections {
		total += s.LineTotal
	}
	return total
}

// Summary is the cached aggregate shown on the cart page. EstimatedTax uses
// the store-wide default rate; the buyer's real rate is only known at checkout.
type Summary struct {
	TotalPhotos    int
	TotalPrints    int
	Subtotal       float64
	EstimatedTax   float64
	EstimatedTotal float64
}

type Cart struct {
	UserID    string
	Items     []Item
	Summary   Summary
	ExpiresAt time.Time
	UpdatedAt time.Time
}

func New(userID string, ttl time.Duration) *Cart {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	return &Cart{
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}
}

// UpsertItem adds the item, replacing any existing item for the same photo.
// Last write wins per photo; there is no merge.
func (c *Cart) UpsertItem(item Item) (replaced bool) {
	for i := range c.Items {
		if c.Items[i].PhotoID == item.PhotoID {
			item.ID = c.Items[i].ID
			c.Items[i] = item
			return true
		}
	}
	c.Items = append(c.Items, item)
	return false
}

func (c *Cart) UpdateItem(itemID string, selections []PrintSelection) error {
	if len(selections) == 0 {
		return ErrNoSelections
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Selections = append([]PrintSelection(nil), selections...)
			c.Items[i].PhotoTotal = totalOf(selections)
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveItem(itemID string) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear() {
	c.Items = nil
}

// Recalculate refreshes the cached summary. Must be called after every mutation.
func (c *Cart) Recalculate(defaultTaxRate float64) {
	s := Summary{TotalPhotos: len(c.Items)}
	for _, item := range c.Items {
		for _, sel := range item.Selections {
			s.TotalPrints += sel.Quantity
		}
		s.Subtotal += item.PhotoTotal
	}
	s.EstimatedTax = s.Subtotal * defaultTaxRate
	s.EstimatedTotal = s.Subtotal + s.EstimatedTax
	c.Summary = s
}

// Touch slides the expiry window forward after a successful mutation.
func (c *Cart) Touch(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	c.ExpiresAt = now.Add(ttl)
	c.UpdatedAt = now
}

func (c *Cart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = make([]Item, len(c.Items))
	for i, item := range c.Items {
		item.Selections = append([]PrintSelection(nil), item.Selections...)
		clone.Items[i] = item
	}
	return &clone
}
