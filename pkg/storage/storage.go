package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by Open when no image has the given name.
var ErrNotFound = errors.New("image not found")

// ObjectInfo describes a stored image.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ImageStore keeps card images under flat names such as "<id>.png".
type ImageStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the image. A missing image is not an error.
	Delete(ctx context.Context, name string) error
	// Count reports how many images are stored. It fails when the store
	// cannot be enumerated.
	Count(ctx context.Context) (int, error)
	// Clear removes every stored object and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// ContentTypeFor guesses an image content type from the file extension.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ValidName reports whether name is a plain file name with no path parts.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
