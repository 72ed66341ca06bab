package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps objects under a directory on disk and serves them
// from urlPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create files dir %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStorage) file(objectPath string) (string, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(p)), nil
}

func (s *LocalStorage) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	name, err := s.file(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", objectPath, err)
	}
	// No upsert: an existing object is an error.
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", objectPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", objectPath, err)
	}
	return f.Close()
}

func (s *LocalStorage) Download(ctx context.Context, objectPath string) ([]byte, error) {
	name, err := s.file(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectPath, err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	name, err := s.file(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, objectPath)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectPath, err)
	}
	return nil
}

func (s *LocalStorage) PublicURL(objectPath string) string {
	return s.urlPrefix + "/" + strings.TrimPrefix(objectPath, "/")
}

// Handler serves stored objects by exact path. Directories, including the
// per-conversation folders, answer 404 so object names cannot be listed.
func (s *LocalStorage) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		name, err := s.file(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		info, err := os.Stat(name)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
