// Package records keeps each business card as a metadata document plus one
// image, coupled by the card id.
package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"bizcards/pkg/cardid"
	"bizcards/pkg/domain"
	"bizcards/pkg/storage"
	"bizcards/pkg/store"
)

var (
	ErrNotFound         = errors.New("card not found")
	ErrImagesUnreadable = errors.New("image store cannot be listed")
	ErrNameRequired     = errors.New("name is required")
	ErrImageRequired    = errors.New("no image file uploaded")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// ImagePath is the URL path prefix images are served under.
const ImagePath = "/uploads/images/"

// Image is an uploaded card photo.
type Image struct {
	Reader      io.Reader
	Size        int64
	Ext         string
	ContentType string
}

// EraseResult reports how much DeleteAll removed.
type EraseResult struct {
	Cards  int `json:"cards"`
	Images int `json:"images"`
}

// Config configures a Store.
type Config struct {
	Meta      store.Store
	Images    storage.ImageStore
	PublicURL string
	// AllowedExtensions limits image extensions (".png"). Empty allows any.
	AllowedExtensions []string
}

// Store is the record store used by the HTTP layer.
type Store struct {
	meta      store.Store
	images    storage.ImageStore
	publicURL string
	allowed   map[string]bool
	now       func() time.Time
}

// New validates cfg and builds a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Meta == nil {
		return nil, errors.New("metadata store required")
	}
	if cfg.Images == nil {
		return nil, errors.New("image store required")
	}
	var allowed map[string]bool
	if len(cfg.AllowedExtensions) > 0 {
		allowed = make(map[string]bool, len(cfg.AllowedExtensions))
		for _, ext := range cfg.AllowedExtensions {
			if ext = NormalizeExt(ext); ext != "" {
				allowed[ext] = true
			}
		}
	}
	return &Store{
		meta:      cfg.Meta,
		images:    cfg.Images,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		allowed:   allowed,
		now:       time.Now,
	}, nil
}

// Create stores the image, then the metadata. If the metadata cannot be
// written the image is removed again.
func (s *Store) Create(ctx context.Context, fields domain.CardFields, img Image) (domain.Card, error) {
	if img.Reader == nil {
		return domain.Card{}, ErrImageRequired
	}
	if !fields.HasName() {
		return domain.Card{}, ErrNameRequired
	}
	ext := NormalizeExt(img.Ext)
	if s.allowed != nil && !s.allowed[ext] {
		return domain.Card{}, fmt.Errorf("%w: %q", ErrUnsupportedImage, img.Ext)
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFor(ext)
	}

	id := cardid.New(s.now())
	imageName := id + ext
	if err := s.images.Put(ctx, imageName, img.Reader, img.Size, contentType); err != nil {
		return domain.Card{}, fmt.Errorf("save image: %w", err)
	}
	card := fields.Card(id, s.imageURL(imageName))
	if err := s.meta.Save(ctx, card); err != nil {
		if delErr := s.images.Delete(ctx, imageName); delErr != nil {
			slog.Warn("failed to roll back image", "image", imageName, "err", delErr)
		}
		return domain.Card{}, fmt.Errorf("save card: %w", err)
	}
	return card, nil
}

// ListAll returns every readable card, newest first.
func (s *Store) ListAll(ctx context.Context) ([]domain.Card, error) {
	cards, err := s.meta.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cardid.SortNewestFirst(cards)
	return cards, nil
}

// Get returns one card. An id that could never have been generated, such as
// one with path separators, is reported as not found without touching the
// stores.
func (s *Store) Get(ctx context.Context, id string) (domain.Card, error) {
	if !cardid.Valid(id) {
		return domain.Card{}, ErrNotFound
	}
	card, ok, err := s.meta.Get(ctx, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("read card: %w", err)
	}
	if !ok {
		return domain.Card{}, ErrNotFound
	}
	return card, nil
}

// Update replaces the metadata of an existing card. The id and image stay.
func (s *Store) Update(ctx context.Context, id string, fields domain.CardFields) (domain.Card, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Card{}, err
	}
	if !fields.HasName() {
		return domain.Card{}, ErrNameRequired
	}
	card := fields.Card(existing.ID, existing.ImageURL)
	if err := s.meta.Save(ctx, card); err != nil {
		return domain.Card{}, fmt.Errorf("save card: %w", err)
	}
	return card, nil
}

// Delete removes the metadata, then tries to remove the image. A failure to
// remove the image is logged and leaves an orphan.
func (s *Store) Delete(ctx context.Context, id string) error {
	card, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	removed, err := s.meta.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if !removed {
		return ErrNotFound
	}
	name := ImageName(card.ImageURL)
	if name == "" {
		return nil
	}
	if err := s.images.Delete(ctx, name); err != nil {
		slog.Warn("failed to delete card image", "card_id", id, "image", name, "err", err)
	}
	return nil
}

// DeleteAll clears both the metadata and the image store. Both stores are
// enumerated first so that a store that cannot be read fails the call before
// anything is removed.
func (s *Store) DeleteAll(ctx context.Context) (EraseResult, error) {
	if _, err := s.meta.Count(ctx); err != nil {
		return EraseResult{}, fmt.Errorf("list cards: %w", err)
	}
	if _, err := s.images.Count(ctx); err != nil {
		return EraseResult{}, fmt.Errorf("%w: %w", ErrImagesUnreadable, err)
	}
	cards, err := s.meta.DeleteAll(ctx)
	if err != nil {
		return EraseResult{}, fmt.Errorf("delete cards: %w", err)
	}
	images, err := s.images.Clear(ctx)
	if err != nil {
		return EraseResult{Cards: cards}, fmt.Errorf("delete images: %w", err)
	}
	return EraseResult{Cards: cards, Images: images}, nil
}

// OpenImage streams a stored image by file name.
func (s *Store) OpenImage(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.images.Open(ctx, name)
}

// Ping checks the metadata store.
func (s *Store) Ping(ctx context.Context) error {
	return s.meta.Ping(ctx)
}

func (s *Store) imageURL(name string) string {
	return s.publicURL + ImagePath + name
}

// ImageName returns the image file name referenced by imageURL.
func ImageName(imageURL string) string {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return ""
	}
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if !storage.ValidName(name) {
		return ""
	}
	return name
}

// NormalizeExt lowercases ext and makes sure it starts with a dot. Anything
// other than letters and digits after the dot yields "".
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}
