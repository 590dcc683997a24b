package memory

import (
	"context"
	"sync"
)

// BlobStore is an in-memory stand-in for the binary photo storage. The core
// never reads blobs; the cleanup executor only deletes them.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Put(ctx context.Context, blobID string, data []byte) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[blobID] = append([]byte(nil), data...)
	return nil
}

// Delete is idempotent; deleting an unknown blob is not an error.
func (s *BlobStore) Delete(ctx context.Context, blobID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, blobID)
	return nil
}

func (s *BlobStore) Exists(blobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[blobID]
	return ok
}
