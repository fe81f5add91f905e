package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Put(ctx, "products/shirt.jpg", strings.NewReader("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/shirt.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "products", "shirt.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "products", "shirt.jpg"))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, url))
}

func TestLocalStorage_DeleteIgnoresForeignURLs(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	for _, url := range []string{
		"https://cdn.example.com/keep.txt",
		"/static/keep.txt",
		"/uploads/../keep.txt",
		"/uploads/",
	} {
		assert.NoError(t, s.Delete(context.Background(), url), url)
	}
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestLocalStorage_PutRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../../etc/passwd", strings.NewReader(""), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		base, url string
		key       string
		ok        bool
	}{
		{"https://img.example.com", "https://img.example.com/products/a.jpg", "products/a.jpg", true},
		{"https://img.example.com/", "https://img.example.com/a.jpg", "a.jpg", true},
		{"https://img.example.com", "https://img.example.com.evil/a.jpg", "", false},
		{"/uploads", "/uploads", "", false},
		{"/uploads", "/uploads/a/../../b", "", false},
	}
	for _, tt := range tests {
		key, ok := keyFromURL(tt.base, tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.key, key, tt.url)
	}
}

func TestLocalStorage_PutReplacesWithoutLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	_, err = s.Put(ctx, "products/p1.png", strings.NewReader("v1"), "image/png")
	require.NoError(t, err)
	_, err = s.Put(ctx, "products/p1.png", strings.NewReader("v2"), "image/png")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "products"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	data, err := os.ReadFile(filepath.Join(dir, "products", "p1.png"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
