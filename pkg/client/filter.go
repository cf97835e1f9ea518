package client

import (
	"strings"

	"bizcards/pkg/domain"
)

// Filter keeps the cards whose name, company, position or category contains
// query, ignoring case. An empty query returns cards unchanged.
func Filter(cards []domain.Card, query string) []domain.Card {
	if query == "" {
		return cards
	}
	q := strings.ToLower(query)
	out := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		if matches(card, q) {
			out = append(out, card)
		}
	}
	return out
}

func matches(card domain.Card, q string) bool {
	for _, field := range []string{card.Name, card.Company, card.Position, card.Category} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
