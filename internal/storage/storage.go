// Package storage abstracts the blob store holding uploaded images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStorage is the contract the editor and image handlers depend on.
// Upload returns the public URL of the stored object.
type BlobStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a collision-resistant key for an upload: the filename is
// prefixed with a millisecond timestamp inside the given folder.
func ObjectKey(folder, filename string) string {
	return path.Join(folder, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), path.Base(filename)))
}
