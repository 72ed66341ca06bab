// Package storage keeps uploaded data files and images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid file path")
)

// FileStore stores opaque blobs under slash-separated object paths.
type FileStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) error
	Download(ctx context.Context, objectPath string) ([]byte, error)
	Delete(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}

// CleanPath normalizes an object path and rejects ones escaping the bucket.
func CleanPath(objectPath string) (string, error) {
	p := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(objectPath)), "/")
	if p == "" || p == "." || strings.Contains(objectPath, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return p, nil
}
