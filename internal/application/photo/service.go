// Package photo exposes the photo registration surface the storefront needs
// before a picture can be carted: store the binary, record the metadata.
package photo

import (
	"context"
	"fmt"

	domain "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/observability"
	"github.com/photoworks/printshop/app/internal/observability/logctx"
)

type IDGenerator interface {
	NewID() string
}

// BlobStore stores photo binaries keyed by blob id.
type BlobStore interface {
	Put(ctx context.Context, blobID string, data []byte) error
}

type Service struct {
	photos domain.Repository
	blobs  BlobStore
	idGen  IDGenerator
	logger observability.Logger
}

func NewService(photos domain.Repository, blobs BlobStore, idGen IDGenerator, logger observability.Logger) *Service {
	return &Service{photos: photos, blobs: blobs, idGen: idGen, logger: logger}
}

// Register stores the binary and its metadata record. The blob id is distinct
// from the photo id so a future storage move does not rewrite photo ids.
func (s *Service) Register(ctx context.Context, userID, fileName string, data []byte) (*domain.Photo, error) {
	id := s.idGen.NewID()
	blobID := s.idGen.NewID()

	p, err := domain.New(id, userID, fileName, blobID, int64(len(data)))
	if err != nil {
		return nil, err
	}

	if err := s.blobs.Put(ctx, blobID, data); err != nil {
		return nil, fmt.Errorf("photo service: store blob: %w", err)
	}
	if err := s.photos.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("photo service: insert: %w", err)
	}

	logctx.FromOr(ctx, s.logger).Info("photo_registered",
		observability.F("photo_id", p.ID),
		observability.F("user_id", userID),
		observability.F("size_bytes", p.SizeBytes))
	return p, nil
}

// Get returns a photo owned by the user. Another user's photo reads as not
// found rather than forbidden.
func (s *Service) Get(ctx context.Context, userID, photoID string) (*domain.Photo, error) {
	p, err := s.photos.Get(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
