package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"bizcards/pkg/domain"
)

const (
	documentExt            = ".json"
	defaultReadConcurrency = 8
)

// JSONStore keeps one pretty-printed JSON document per card in a directory.
type JSONStore struct {
	dir             string
	readConcurrency int
}

// NewJSONStore creates dir if missing.
func NewJSONStore(dir string) (*JSONStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("metadata dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	return &JSONStore{dir: dir, readConcurrency: defaultReadConcurrency}, nil
}

// Dir returns the directory holding the documents.
func (s *JSONStore) Dir() string {
	return s.dir
}

func (s *JSONStore) path(id string) string {
	return filepath.Join(s.dir, id+documentExt)
}

// Save writes <id>.json.
func (s *JSONStore) Save(_ context.Context, card domain.Card) error {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}
	if err := os.WriteFile(s.path(card.ID), data, 0o644); err != nil {
		return fmt.Errorf("write card %s: %w", card.ID, err)
	}
	return nil
}

// Get reads <id>.json. A document that exists but does not decode is an error.
func (s *JSONStore) Get(_ context.Context, id string) (domain.Card, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Card{}, false, nil
	}
	if err != nil {
		return domain.Card{}, false, fmt.Errorf("read card %s: %w", id, err)
	}
	var card domain.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return domain.Card{}, false, fmt.Errorf("decode card %s: %w", id, err)
	}
	return card, true, nil
}

// List decodes every .json file in the directory concurrently.
func (s *JSONStore) List(ctx context.Context) ([]domain.Card, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read metadata dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != documentExt {
			continue
		}
		names = append(names, entry.Name())
	}

	decoded := make([]*domain.Card, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.readConcurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			card, err := readDocument(filepath.Join(s.dir, name))
			if err != nil {
				slog.Warn("skipping unreadable card document", "file", name, "err", err)
				return nil
			}
			decoded[i] = &card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cards := make([]domain.Card, 0, len(decoded))
	for _, card := range decoded {
		if card != nil {
			cards = append(cards, *card)
		}
	}
	return cards, nil
}

// Delete removes <id>.json.
func (s *JSONStore) Delete(_ context.Context, id string) (bool, error) {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove card %s: %w", id, err)
	}
	return true, nil
}

// Count returns the number of entries in the directory.
func (s *JSONStore) Count(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", s.dir, err)
	}
	return len(entries), nil
}

// DeleteAll removes every entry of the directory, not only .json files.
// Per-file failures are logged and skipped.
func (s *JSONStore) DeleteAll(_ context.Context) (int, error) {
	return clearDir(s.dir)
}

// Ping checks that the directory is still there.
func (s *JSONStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func readDocument(path string) (domain.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Card{}, err
	}
	var card domain.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func clearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to delete file", "path", path, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
