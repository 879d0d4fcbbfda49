package photostore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/urbansims/microgreens/internal/domain/tracker"
)

// ErrNotFound is returned when a key has no stored photo.
var ErrNotFound = errors.New("photo not found")

// MemoryStorage keeps photos in memory. Useful for tests and local dev.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

type storedBlob struct {
	data     []byte
	mimeType string
}

// NewMemoryStorage constructs storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string]storedBlob)}
}

// Put stores the photo and returns metadata.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, mimeType string) (tracker.StoredPhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = storedBlob{data: bytes.Clone(data), mimeType: mimeType}
	return tracker.StoredPhoto{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}

// Get returns a reader for the stored photo.
func (s *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(blob.data)), blob.mimeType, nil
}

// Delete removes the photo.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

var _ tracker.PhotoStorage = (*MemoryStorage)(nil)
