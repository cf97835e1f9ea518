package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DirStore saves images as files in one directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if missing.
func NewDirStore(dir string) (*DirStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("image dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (d *DirStore) Dir() string {
	return d.dir
}

func (d *DirStore) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	return filepath.Join(d.dir, name), nil
}

// Put streams r into the named file. A partially written file is removed.
func (d *DirStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	target, err := d.path(name)
	if err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Open returns the file and its metadata.
func (d *DirStore) Open(_ context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	target, err := d.path(name)
	if err != nil {
		return nil, ObjectInfo{}, ErrNotFound
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ObjectInfo{}, ErrNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, ErrNotFound
	}
	return f, ObjectInfo{
		Size:         info.Size(),
		ContentType:  ContentTypeFor(name),
		LastModified: info.ModTime(),
	}, nil
}

// Delete removes the file, ignoring a missing one.
func (d *DirStore) Delete(_ context.Context, name string) error {
	target, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// Count returns the number of entries in the directory.
func (d *DirStore) Count(_ context.Context) (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("read image dir: %w", err)
	}
	return len(entries), nil
}

// Clear removes every entry in the directory. Failures on individual files
// are logged and skipped.
func (d *DirStore) Clear(_ context.Context) (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("read image dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		target := filepath.Join(d.dir, entry.Name())
		if err := os.Remove(target); err != nil {
			slog.Warn("failed to delete image file", "path", target, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
