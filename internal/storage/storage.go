// Package storage abstracts where uploaded FRQ page scans live. The
// local driver writes to disk and serves files from the API itself; the
// S3 driver targets any S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors for upload validation.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed scan MIME types mapped to their file extension.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Store persists uploaded files and hands back a public URL.
type Store interface {
	// Save writes the file and returns the URL it will be served from.
	Save(ctx context.Context, reader io.Reader, size int64, contentType string) (url string, err error)
}

// extensionFor validates the MIME type and size against the upload
// policy, returning the extension for the stored object's name.
func extensionFor(contentType string, size, maxBytes int64) (string, error) {
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return "", ErrUnsupportedFileType
	}
	if maxBytes > 0 && size > maxBytes {
		return "", ErrFileTooLarge
	}
	return ext, nil
}
