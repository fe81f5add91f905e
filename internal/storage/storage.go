package storage

import (
	"context"
	"io"
	"strings"

	"github.com/dukerupert/atelier/internal"
)

// Storage defines the interface for product image storage.
// Implementations can use local filesystem, S3, or any S3-compatible backend.
type Storage interface {
	// Put stores a file and returns its public URL.
	// The key should be a unique identifier (e.g., "products/uuid.jpg").
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)

	// Delete removes the file behind a URL previously returned by Put.
	// Returns nil if the file doesn't exist (idempotent). URLs that this
	// store did not issue are left alone.
	Delete(ctx context.Context, url string) error

	// URL returns the public URL for accessing a stored file.
	URL(key string) string
}

// NewStorage creates a Storage implementation based on configuration.
func NewStorage(ctx context.Context, cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Region:      cfg.S3Region,
			Endpoint:    cfg.S3Endpoint,
			AccessKeyID: cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
			Bucket:      cfg.S3Bucket,
			PublicURL:   cfg.S3PublicURL,
		})
	default:
		return nil, unknownProvider(cfg.Provider)
	}
}

// keyFromURL strips base from url. ok is false when url is not under base.
func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
