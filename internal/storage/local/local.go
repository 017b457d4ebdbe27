package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/trungse123/review-backend/internal/storage"
)

// Storage implements storage.Storage on the local filesystem. Files are
// served read-only by the HTTP layer under the base URL.
type Storage struct {
	basePath string
	baseURL  string
}

var _ storage.Storage = (*Storage)(nil)

// New creates the base directory when missing and returns a local storage.
func New(basePath, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Storage{
		basePath: basePath,
		baseURL:  baseURL,
	}, nil
}

// Dir returns the directory files are written to.
func (s *Storage) Dir() string {
	return s.basePath
}

// Upload writes the file under the base path. A partially written file is
// removed on failure.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	filePath, err := s.path(input.Key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(file, input.Data); err != nil {
		file.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("close file: %w", err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: storage.JoinURL(s.baseURL, input.Key),
	}, nil
}

// Delete removes the file for key.
func (s *Storage) Delete(_ context.Context, key string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// GetURL returns the public URL of an existing file.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	filePath, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return "", fmt.Errorf("stat file: %w", err)
	}
	return storage.JoinURL(s.baseURL, key), nil
}

func (s *Storage) path(key string) (string, error) {
	if !storage.ValidKey(key) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}
