package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/trungse123/review-backend/internal/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Storage keeps media in process memory. Nothing survives a restart.
type Storage struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]object
}

var _ storage.Storage = (*Storage)(nil)

func New(baseURL string) *Storage {
	return &Storage{baseURL: baseURL, objects: make(map[string]object)}
}

func (s *Storage) Upload(_ context.Context, in *storage.UploadInput) (*storage.UploadResult, error) {
	if !storage.ValidKey(in.Key) {
		return nil, fmt.Errorf("invalid media key %q", in.Key)
	}
	data, err := io.ReadAll(in.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", in.Key, err)
	}

	s.mu.Lock()
	s.objects[in.Key] = object{contentType: in.ContentType, data: data}
	s.mu.Unlock()

	return &storage.UploadResult{Key: in.Key, URL: storage.JoinURL(s.baseURL, in.Key)}, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return storage.JoinURL(s.baseURL, key), nil
}

// Object returns the stored bytes and content type of key.
func (s *Storage) Object(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o.data, o.contentType, ok
}

// Len reports how many objects are stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
