package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: print size not found")
	ErrConflict     = errors.New("catalog: size code already exists")
	ErrInactive     = errors.New("catalog: print size is not active")
	ErrInvalidPrice = errors.New("catalog: base price must be greater than zero")
	ErrInvalidCode  = errors.New("catalog: size code is required")
)

// PrintSize is one orderable print format, e.g. code "4x6" at $0.29.
// Deactivated sizes stay on record so existing orders keep their names,
// but carts may no longer select them.
type PrintSize struct {
	Code      string
	Name      string
	BasePrice float64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(code, name string, basePrice float64) (*PrintSize, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if basePrice <= 0 {
		return nil, ErrInvalidPrice
	}
	if name == "" {
		name = code
	}

	now := time.Now().UTC()
	return &PrintSize{
		Code:      code,
		Name:      name,
		BasePrice: basePrice,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *PrintSize) Deactivate() {
	p.Active = false
	p.touch()
}

func (p *PrintSize) Reprice(basePrice float64) error {
	if basePrice <= 0 {
		return ErrInvalidPrice
	}
	p.BasePrice = basePrice
	p.touch()
	return nil
}

func (p *PrintSize) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func (p *PrintSize) Clone() *PrintSize {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
