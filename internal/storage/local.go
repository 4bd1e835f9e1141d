package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bienestar/internal/observability"
)

// LocalStorage stores blobs on the local filesystem, for development and
// tests. Objects are served by the HTTP layer under baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates a disk-backed blob store rooted at dir.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the root directory, for mounting as a static route.
func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	full := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		observability.BlobUploads.WithLabelValues("error").Inc()
		return "", err
	}

	f, err := os.Create(full)
	if err != nil {
		observability.BlobUploads.WithLabelValues("error").Inc()
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		observability.BlobUploads.WithLabelValues("error").Inc()
		return "", err
	}
	observability.BlobUploads.WithLabelValues("ok").Inc()
	return l.baseURL + "/" + key, nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	full := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
