package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/photoworks/printshop/app/internal/domain/catalog"
)

type PrintSizeRepository struct {
	mu    sync.RWMutex
	sizes map[string]*domain.PrintSize
}

func NewPrintSizeRepository() *PrintSizeRepository {
	return &PrintSizeRepository{sizes: make(map[string]*domain.PrintSize)}
}

func (r *PrintSizeRepository) Save(ctx context.Context, size *domain.PrintSize) error {
	_ = ctx
	if size == nil || size.Code == "" {
		return fmt.Errorf("print size repository: code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sizes[size.Code] = size.Clone()
	return nil
}

func (r *PrintSizeRepository) GetByCode(ctx context.Context, code string) (*domain.PrintSize, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	size, ok := r.sizes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return size.Clone(), nil
}

func (r *PrintSizeRepository) ListActive(ctx context.Context) ([]*domain.PrintSize, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.PrintSize
	for _, size := range r.sizes {
		if size.Active {
			out = append(out, size.Clone())
		}
	}
	return out, nil
}
