package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore writes uploads to a directory served by the API under
// /uploads. The default driver for single-node deployments.
type LocalStore struct {
	dir      string
	maxBytes int64
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string, maxBytes int64) *LocalStore {
	return &LocalStore{dir: dir, maxBytes: maxBytes}
}

// Save stores the file under a UUID filename and returns the relative
// URL path.
func (s *LocalStore) Save(_ context.Context, reader io.Reader, size int64, contentType string) (string, error) {
	ext, err := extensionFor(contentType, size, s.maxBytes)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.New().String() + ext
	destPath := filepath.Join(s.dir, filename)

	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, reader); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return "/uploads/" + filename, nil
}
