package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: order number already exists")
	ErrVersionConflict = errors.New("order: stale version, reload and retry")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidPricing  = errors.New("order: pricing totals must be zero or greater")
)

// PrintSelection is a frozen copy of a cart selection. UnitPrice and Subtotal
// are locked at order creation and never change, regardless of later catalog
// price edits.
type PrintSelection struct {
	SizeCode  string
	SizeName  string
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

// Item is one photo and its frozen print selections.
type Item struct {
	PhotoID    string
	FileName   string
	Selections []PrintSelection
	PhotoTotal float64
}

// Pricing is locked at creation time.
type Pricing struct {
	Subtotal  float64
	TaxRate   float64
	TaxAmount float64
	Total     float64
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentBranch     PaymentMethod = "branch"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
)

// Payment never holds a raw card number or CVV; for credit cards only the
// last four digits and the cardholder name are kept.
type Payment struct {
	Method          PaymentMethod
	Status          PaymentStatus
	CardLastFour    string
	CardholderName  string
	BranchReference string
	VerifiedAt      *time.Time
	VerifiedBy      string
}

// Note is a timestamped, attributed free-text remark on the fulfillment trail.
type Note struct {
	At   time.Time
	By   string
	Text string
}

type Fulfillment struct {
	PrintedAt      *time.Time
	ShippedAt      *time.Time
	TrackingNumber string
	CompletedAt    *time.Time
	Notes          []Note
}

// PhotoCleanup is reset when the order completes and finalized by the cleanup
// executor once the retention buffer has elapsed.
type PhotoCleanup struct {
	IsCompleted   bool
	PhotosDeleted int
	StorageFreed  int64
	CleanupAt     *time.Time
}

type Order struct {
	ID             string
	Number         string
	UserID         string
	IdempotencyKey string
	ShippingState  string
	Items          []Item
	Pricing        Pricing
	Status         Status
	Payment        Payment
	Fulfillment    Fulfillment
	PhotoCleanup   PhotoCleanup

	// Version is an optimistic-concurrency token; Repository.Update rejects
	// writes whose version does not match the stored one.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, number, userID, idempotencyKey, shippingState string, items []Item, pricing Pricing, payment Payment) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if pricing.Subtotal < 0 || pricing.TaxAmount < 0 || pricing.Total < 0 {
		return nil, ErrInvalidPricing
	}
	if payment.Status == "" {
		payment.Status = PaymentPending
	}

	now := time.Now().UTC()
	return &Order{
		ID:             id,
		Number:         number,
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		ShippingState:  shippingState,
		Items:          cloneItems(items),
		Pricing:        pricing,
		Status:         StatusPending,
		Payment:        payment,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// PhotoIDs returns the distinct photo ids referenced by this order.
func (o *Order) PhotoIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.PhotoID]; ok {
			continue
		}
		seen[item.PhotoID] = struct{}{}
		ids = append(ids, item.PhotoID)
	}
	return ids
}

// AddNote appends an attributed note to the fulfillment trail.
func (o *Order) AddNote(by, text string) {
	if text == "" {
		return
	}
	o.Fulfillment.Notes = append(o.Fulfillment.Notes, Note{
		At:   time.Now().UTC(),
		By:   by,
		Text: text,
	})
	o.touch()
}

// FinalizePhotoCleanup records the executor's result on the order.
func (o *Order) FinalizePhotoCleanup(photosDeleted int, storageFreed int64, at time.Time) {
	o.PhotoCleanup = PhotoCleanup{
		IsCompleted:   true,
		PhotosDeleted: photosDeleted,
		StorageFreed:  storageFreed,
		CleanupAt:     &at,
	}
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = cloneItems(o.Items)
	clone.Fulfillment.Notes = append([]Note(nil), o.Fulfillment.Notes...)
	clone.Payment.VerifiedAt = cloneTime(o.Payment.VerifiedAt)
	clone.Fulfillment.PrintedAt = cloneTime(o.Fulfillment.PrintedAt)
	clone.Fulfillment.ShippedAt = cloneTime(o.Fulfillment.ShippedAt)
	clone.Fulfillment.CompletedAt = cloneTime(o.Fulfillment.CompletedAt)
	clone.PhotoCleanup.CleanupAt = cloneTime(o.PhotoCleanup.CleanupAt)
	return &clone
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.Selections = append([]PrintSelection(nil), item.Selections...)
		out[i] = item
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
