package client

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"bizcards/pkg/domain"
)

// ErrImageRequired is returned when saving a card that has neither an id nor
// a new image. The service only creates cards from an upload.
var ErrImageRequired = errors.New("an image is required to create a card")

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithRefetchAfterMutation makes every successful mutation re-fetch the list
// from the service instead of trusting the local patch.
func WithRefetchAfterMutation() CacheOption {
	return func(c *Cache) { c.refetch = true }
}

// Cache is the client-side copy of the card list. It is loaded once and then
// patched locally after each mutation, so it can drift from what other
// clients write. Refresh re-syncs it cheaply via the list ETag.
type Cache struct {
	client  *Client
	mu      sync.RWMutex
	cards   []domain.Card
	etag    string
	loaded  bool
	refetch bool
}

func NewCache(c *Client, opts ...CacheOption) *Cache {
	cache := &Cache{client: c}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Load replaces the cache with the full list from the service.
func (c *Cache) Load(ctx context.Context) error {
	cards, etag, _, err := c.client.ListCards(ctx, "")
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cards, c.etag, c.loaded = cards, etag, true
	c.mu.Unlock()
	return nil
}

// Refresh re-fetches the list if it changed on the server and reports
// whether the cache was replaced.
func (c *Cache) Refresh(ctx context.Context) (bool, error) {
	c.mu.RLock()
	etag := c.etag
	if !c.loaded {
		etag = ""
	}
	c.mu.RUnlock()

	cards, newETag, notModified, err := c.client.ListCards(ctx, etag)
	if err != nil {
		return false, err
	}
	if notModified {
		return false, nil
	}
	c.mu.Lock()
	c.cards, c.etag, c.loaded = cards, newETag, true
	c.mu.Unlock()
	return true, nil
}

// Cards returns a snapshot of the cached list.
func (c *Cache) Cards() []domain.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.cards)
}

// Filter applies Filter to the cached list.
func (c *Cache) Filter(query string) []domain.Card {
	return Filter(c.Cards(), query)
}

// Create uploads a new card and prepends it.
func (c *Cache) Create(ctx context.Context, fields domain.CardFields, img Upload) (domain.Card, error) {
	card, err := c.client.CreateCard(ctx, fields, img)
	if err != nil {
		return domain.Card{}, err
	}
	c.upsert(card)
	c.afterMutation(ctx)
	return card, nil
}

// Save persists an edited card. With a new image the card is uploaded as a
// new record (a new id); the record it was edited from is left in place.
// Without one the existing record's fields are replaced.
func (c *Cache) Save(ctx context.Context, card domain.Card, img *Upload) (domain.Card, error) {
	var (
		saved domain.Card
		err   error
	)
	switch {
	case img != nil:
		saved, err = c.client.CreateCard(ctx, card.Fields(), *img)
	case card.ID != "":
		saved, err = c.client.UpdateCard(ctx, card.ID, card.Fields())
	default:
		return domain.Card{}, ErrImageRequired
	}
	if err != nil {
		return domain.Card{}, err
	}
	c.upsert(saved)
	c.afterMutation(ctx)
	return saved, nil
}

// Delete removes the card on the service and from the cache.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.client.DeleteCard(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	c.cards = slices.DeleteFunc(c.cards, func(card domain.Card) bool { return card.ID == id })
	c.mu.Unlock()
	c.afterMutation(ctx)
	return nil
}

// EraseAll deletes every card on the service and empties the cache.
func (c *Cache) EraseAll(ctx context.Context) (EraseResult, error) {
	res, err := c.client.DeleteAll(ctx)
	if err != nil {
		return EraseResult{}, err
	}
	c.mu.Lock()
	c.cards = []domain.Card{}
	c.mu.Unlock()
	c.afterMutation(ctx)
	return res, nil
}

// upsert replaces the card with the same id or prepends it.
func (c *Cache) upsert(card domain.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.IndexFunc(c.cards, func(existing domain.Card) bool { return existing.ID == card.ID }); i >= 0 {
		c.cards[i] = card
		return
	}
	c.cards = append([]domain.Card{card}, c.cards...)
}

func (c *Cache) afterMutation(ctx context.Context) {
	if !c.refetch {
		return
	}
	if _, err := c.Refresh(ctx); err != nil {
		slog.Warn("refetch after mutation failed; keeping local patch", "err", err)
	}
}
