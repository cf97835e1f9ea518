package store

import (
	"context"

	"bizcards/pkg/domain"
)

// Store persists card metadata documents keyed by card id.
type Store interface {
	// Save writes the full card, replacing any previous document.
	Save(ctx context.Context, card domain.Card) error
	// Get returns the card, or false when no document exists for id.
	Get(ctx context.Context, id string) (domain.Card, bool, error)
	// List returns every readable card in no particular order. Documents that
	// cannot be read or decoded are skipped; only a failure to enumerate the
	// collection is an error.
	List(ctx context.Context) ([]domain.Card, error)
	// Delete removes the document, reporting false when it did not exist.
	Delete(ctx context.Context, id string) (bool, error)
	// Count reports how many documents exist. It fails when the collection
	// cannot be enumerated.
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every document and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}
