package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage keeps images on disk under root and serves them at baseURL
// through the router's static handler. Suitable for dev and single-node
// deployments.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates root if needed. baseURL is the path prefix the
// files are served under, e.g. "/uploads".
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Put writes content to a temp file beside the target and renames it into
// place, so readers never see a partial image.
func (s *LocalStorage) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", backendError("storage.local.put", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", backendError("storage.local.put", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return "", backendError("storage.local.put", err)
	}
	if err := tmp.Close(); err != nil {
		return "", backendError("storage.local.put", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", backendError("storage.local.put", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", backendError("storage.local.put", err)
	}
	return s.URL(key), nil
}

// Delete removes the file behind url. Missing files and foreign URLs are
// not errors.
func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return backendError("storage.local.delete", err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return path.Join(s.baseURL, key)
}

// resolve maps key to a path under root, rejecting keys that escape it.
func (s *LocalStorage) resolve(key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(key))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, rel), nil
}
