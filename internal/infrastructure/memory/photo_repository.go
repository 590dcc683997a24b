package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/photoworks/printshop/app/internal/domain/photo"
)

type PhotoRepository struct {
	mu     sync.RWMutex
	photos map[string]*domain.Photo
}

func NewPhotoRepository() *PhotoRepository {
	return &PhotoRepository{photos: make(map[string]*domain.Photo)}
}

func (r *PhotoRepository) Insert(ctx context.Context, photo *domain.Photo) error {
	_ = ctx
	if photo == nil || photo.ID == "" {
		return fmt.Errorf("photo repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.photos[photo.ID]; exists {
		return fmt.Errorf("photo repository: duplicate id %s", photo.ID)
	}
	r.photos[photo.ID] = photo.Clone()
	return nil
}

func (r *PhotoRepository) Get(ctx context.Context, id string) (*domain.Photo, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	photo, ok := r.photos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return photo.Clone(), nil
}

func (r *PhotoRepository) Update(ctx context.Context, photo *domain.Photo) error {
	_ = ctx
	if photo == nil || photo.ID == "" {
		return fmt.Errorf("photo repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.photos[photo.ID]; !exists {
		return domain.ErrNotFound
	}
	r.photos[photo.ID] = photo.Clone()
	return nil
}

// ListByIDs returns the photos that exist; unknown ids are skipped rather
// than failing the whole batch.
func (r *PhotoRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Photo, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Photo, 0, len(ids))
	for _, id := range ids {
		if photo, ok := r.photos[id]; ok {
			out = append(out, photo.Clone())
		}
	}
	return out, nil
}

func (r *PhotoRepository) ListDueForCleanup(ctx context.Context, before time.Time) ([]*domain.Photo, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Photo
	for _, photo := range r.photos {
		if photo.DueForCleanup(before) {
			out = append(out, photo.Clone())
		}
	}
	return out, nil
}
