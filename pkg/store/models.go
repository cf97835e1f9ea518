package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"bizcards/pkg/cardid"
	"bizcards/pkg/domain"
)

// CardModel is the postgres row for a card. The whole card is kept as a
// jsonb document; CreatedAtMillis mirrors the id timestamp for ordering.
type CardModel struct {
	ID              string         `gorm:"primaryKey"`
	CreatedAtMillis int64          `gorm:"not null;index"`
	Document        datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

// TableName pins the table name.
func (CardModel) TableName() string {
	return "cards"
}

func toModel(card domain.Card, now time.Time) (CardModel, error) {
	doc, err := json.Marshal(card)
	if err != nil {
		return CardModel{}, fmt.Errorf("encode card: %w", err)
	}
	return CardModel{
		ID:              card.ID,
		CreatedAtMillis: cardid.Timestamp(card.ID),
		Document:        datatypes.JSON(doc),
		UpdatedAt:       now.UTC(),
	}, nil
}

func fromModel(m CardModel) (domain.Card, error) {
	var card domain.Card
	if err := json.Unmarshal(m.Document, &card); err != nil {
		return domain.Card{}, fmt.Errorf("decode card %s: %w", m.ID, err)
	}
	card.ID = m.ID
	return card, nil
}
