package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bizcards/pkg/domain"
)

// GormStore implements Store on postgres through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the cards table.
func NewGormStore(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("database URL required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&CardModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save upserts the card row.
func (s *GormStore) Save(ctx context.Context, card domain.Card) error {
	m, err := toModel(card, time.Now())
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save card %s: %w", card.ID, err)
	}
	return nil
}

// Get loads one card.
func (s *GormStore) Get(ctx context.Context, id string) (domain.Card, bool, error) {
	var m CardModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Card{}, false, nil
	}
	if err != nil {
		return domain.Card{}, false, fmt.Errorf("get card %s: %w", id, err)
	}
	card, err := fromModel(m)
	if err != nil {
		return domain.Card{}, false, err
	}
	return card, true, nil
}

// List loads every card, skipping rows whose document does not decode.
func (s *GormStore) List(ctx context.Context) ([]domain.Card, error) {
	var rows []CardModel
	if err := s.db.WithContext(ctx).Order("created_at_millis DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make([]domain.Card, 0, len(rows))
	for _, m := range rows {
		card, err := fromModel(m)
		if err != nil {
			slog.Warn("skipping undecodable card row", "id", m.ID, "err", err)
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Delete removes one row.
func (s *GormStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&CardModel{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete card %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count returns the number of rows.
func (s *GormStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&CardModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return int(n), nil
}

// DeleteAll truncates the table.
func (s *GormStore) DeleteAll(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CardModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all cards: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
