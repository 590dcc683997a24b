package photo

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("photo: not found")
	// ErrInUse is the hard deletion-safety rule: a photo referenced by any
	// order can never be deleted by direct user action. No admin override.
	ErrInUse   = errors.New("photo: photo is part of an order")
	ErrDeleted = errors.New("photo: already deleted")
)

// OrderInfo tracks which orders reference this photo. OrderedIn only grows
// while any referencing order is active; entries are removed solely by the
// checkout saga's compensating unbind.
type OrderInfo struct {
	IsOrdered     bool
	OrderedIn     []string
	LastOrderedAt *time.Time
}

type Flags struct {
	IsDeleted            bool
	IsPendingDeletion    bool
	DeletionScheduledFor *time.Time
}

type Photo struct {
	ID        string
	UserID    string
	FileName  string
	SizeBytes int64
	BlobID    string
	OrderInfo OrderInfo
	Flags     Flags

	UploadedAt time.Time
	UpdatedAt  time.Time
}

func New(id, userID, fileName, blobID string, sizeBytes int64) (*Photo, error) {
	if id == "" || userID == "" {
		return nil, errors.New("photo: id and user id are required")
	}
	now := time.Now().UTC()
	return &Photo{
		ID:         id,
		UserID:     userID,
		FileName:   fileName,
		SizeBytes:  sizeBytes,
		BlobID:     blobID,
		UploadedAt: now,
		UpdatedAt:  now,
	}, nil
}

// MarkOrdered binds the photo to an order. Idempotent: a second call with the
// same order id changes nothing. Returns whether the photo was modified.
func (p *Photo) MarkOrdered(orderID string, at time.Time) bool {
	if p.ReferencedBy(orderID) {
		return false
	}
	p.OrderInfo.IsOrdered = true
	p.OrderInfo.OrderedIn = append(p.OrderInfo.OrderedIn, orderID)
	p.OrderInfo.LastOrderedAt = &at
	p.touch()
	return true
}

// Unbind removes an order reference, clearing IsOrdered when the set empties.
// Used only as the checkout saga's compensating step.
func (p *Photo) Unbind(orderID string) bool {
	for i, id := range p.OrderInfo.OrderedIn {
		if id == orderID {
			p.OrderInfo.OrderedIn = append(p.OrderInfo.OrderedIn[:i], p.OrderInfo.OrderedIn[i+1:]...)
			p.OrderInfo.IsOrdered = len(p.OrderInfo.OrderedIn) > 0
			p.touch()
			return true
		}
	}
	return false
}

func (p *Photo) ReferencedBy(orderID string) bool {
	for _, id := range p.OrderInfo.OrderedIn {
		if id == orderID {
			return true
		}
	}
	return false
}

// OtherOrders returns every referencing order except the given one.
func (p *Photo) OtherOrders(orderID string) []string {
	var others []string
	for _, id := range p.OrderInfo.OrderedIn {
		if id != orderID {
			others = append(others, id)
		}
	}
	return others
}

// EnsureUserDeletable enforces the deletion-safety rule for direct deletes.
func (p *Photo) EnsureUserDeletable() error {
	if p.Flags.IsDeleted {
		return ErrDeleted
	}
	if p.OrderInfo.IsOrdered {
		return ErrInUse
	}
	return nil
}

// ScheduleDeletion marks the photo for the cleanup executor's work queue.
func (p *Photo) ScheduleDeletion(at time.Time) {
	p.Flags.IsPendingDeletion = true
	p.Flags.DeletionScheduledFor = &at
	p.touch()
}

// MarkDeleted records the physical delete performed by the cleanup executor.
func (p *Photo) MarkDeleted() {
	p.Flags.IsDeleted = true
	p.Flags.IsPendingDeletion = false
	p.touch()
}

// DueForCleanup reports whether the executor may delete this photo now.
func (p *Photo) DueForCleanup(now time.Time) bool {
	return p.Flags.IsPendingDeletion &&
		!p.Flags.IsDeleted &&
		p.Flags.DeletionScheduledFor != nil &&
		!p.Flags.DeletionScheduledFor.After(now)
}

func (p *Photo) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func (p *Photo) Clone() *Photo {
	if p == nil {
		return nil
	}
	clone := *p
	clone.OrderInfo.OrderedIn = append([]string(nil), p.OrderInfo.OrderedIn...)
	if p.OrderInfo.LastOrderedAt != nil {
		v := *p.OrderInfo.LastOrderedAt
		clone.OrderInfo.LastOrderedAt = &v
	}
	if p.Flags.DeletionScheduledFor != nil {
		v := *p.Flags.DeletionScheduledFor
		clone.Flags.DeletionScheduledFor = &v
	}
	return &clone
}
