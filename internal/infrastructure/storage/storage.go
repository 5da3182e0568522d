// Package storage provides object storage backends for imported media
// binaries (product and category pictures).
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a storage key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores media binaries under opaque keys. The import pipeline
// writes downloaded images here and the export pipeline resolves them back
// into URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	Download(ctx context.Context, storageKey string) ([]byte, error)
	Delete(ctx context.Context, storageKey string) error
	Exists(ctx context.Context, storageKey string) (bool, error)
	// DownloadURL returns a URL under which the object can be fetched for
	// the given duration.
	DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, error)
}

// FileStorage is the default backend: objects live as files below a root
// directory. Suitable for single-node deployments.
type FileStorage struct {
	root    string
	baseURL string
}

var _ ObjectStorage = (*FileStorage)(nil)

// NewFileStorage creates a FileStorage rooted at dir. baseURL is prepended
// to storage keys by DownloadURL; it may be empty when objects are served by
// the application itself.
func NewFileStorage(dir, baseURL string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// path maps a storage key to a file path, rejecting traversal.
func (f *FileStorage) path(storageKey string) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	clean := filepath.Clean(filepath.FromSlash(storageKey))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", storageKey)
	}
	return filepath.Join(f.root, clean), nil
}

func (f *FileStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	p, err := f.path(storageKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

func (f *FileStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	p, err := f.path(storageKey)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (f *FileStorage) Delete(ctx context.Context, storageKey string) error {
	p, err := f.path(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileStorage) Exists(ctx context.Context, storageKey string) (bool, error) {
	p, err := f.path(storageKey)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *FileStorage) DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	if f.baseURL == "" {
		return "", nil
	}
	return f.baseURL + "/" + strings.TrimLeft(storageKey, "/"), nil
}
