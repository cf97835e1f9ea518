// Package events announces card changes to other processes.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	TypeCardCreated = "card.created"
	TypeCardUpdated = "card.updated"
	TypeCardDeleted = "card.deleted"
	TypeCardsErased = "cards.erased"
)

// Event describes one mutation of the card collection.
type Event struct {
	Type   string    `json:"type"`
	CardID string    `json:"cardId,omitempty"`
	Count  int       `json:"count,omitempty"`
	At     time.Time `json:"at"`
}

// New stamps an event with the current UTC time.
func New(eventType, cardID string) Event {
	return Event{Type: eventType, CardID: cardID, At: time.Now().UTC()}
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Multi fans an event out to several publishers.
type Multi []Publisher

// Publish sends ev to every publisher and joins their errors.
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
