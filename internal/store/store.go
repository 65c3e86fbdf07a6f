// Package store keeps the card catalog and archived games in a sqlite database.
// It implements game.Catalog, so decks can be dealt straight from the database.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peterkuimelis/grandline/internal/game"
)

// CardRecord is one card definition row.
type CardRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index;not null"`
	Type      string `gorm:"index;not null"`
	Cost      int
	Power     int
	Counter   int
	Life      int
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CardRecord) TableName() string { return "cards" }

// DeckRecord is a deck list. Its cards are stored with their quantity in the
// order they first appear in the list.
type DeckRecord struct {
	ID        string           `gorm:"primaryKey"`
	Name      string           `gorm:"index;not null"`
	LeaderID  string           `gorm:"not null"`
	Cards     []DeckCardRecord `gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DeckRecord) TableName() string { return "decks" }

type DeckCardRecord struct {
	DeckID   string `gorm:"primaryKey"`
	CardID   string `gorm:"primaryKey"`
	Position int
	Quantity int `gorm:"not null;default:1"`
}

func (DeckCardRecord) TableName() string { return "deck_cards" }

// GameRecord is a finished game: the final snapshot, its checksum and the
// encoded replay that reproduces it.
type GameRecord struct {
	ID        string `gorm:"primaryKey"`
	P1DeckID  string `gorm:"column:p1_deck_id;index"`
	P2DeckID  string `gorm:"column:p2_deck_id"`
	Winner    int    `gorm:"index"` // 0, 1 or -1 for a draw
	Result    string
	Turns     int
	Checksum  string
	Snapshot  []byte `gorm:"type:blob"`
	Replay    []byte `gorm:"type:blob"`
	CreatedAt time.Time
}

func (GameRecord) TableName() string { return "games" }

// Store is a gorm-backed catalog and game archive.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&CardRecord{}, &DeckRecord{}, &DeckCardRecord{}, &GameRecord{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", dsn, err)
	}
	logger.Info("store opened", zap.String("dsn", dsn))
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Cards ---

func cardRecord(c *game.Card) CardRecord {
	return CardRecord{
		ID:      c.ID,
		Name:    c.Name,
		Type:    c.Type.String(),
		Cost:    c.Cost,
		Power:   c.Power,
		Counter: c.Counter,
		Life:    c.Life,
		Text:    c.Text,
	}
}

// Card validates the row back into an engine card.
func (r CardRecord) Card() (*game.Card, error) {
	t, err := game.ParseCardType(r.Type)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", game.ErrInvalidCard, r.ID, err)
	}
	return game.NewCard(game.CardDef{
		ID:      r.ID,
		Name:    r.Name,
		Type:    t,
		Cost:    r.Cost,
		Power:   r.Power,
		Counter: r.Counter,
		Life:    r.Life,
		Text:    r.Text,
	})
}

// SaveCard inserts or replaces a card definition.
func (s *Store) SaveCard(c *game.Card) error {
	rec := cardRecord(c)
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (s *Store) GetCard(id string) (*game.Card, error) {
	var rec CardRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w %q", game.ErrUnknownCard, id)
		}
		return nil, err
	}
	return rec.Card()
}

// ListCards returns all cards of the given type ("" for all), ordered by id.
func (s *Store) ListCards(cardType string) ([]*game.Card, error) {
	q := s.db.Order("id")
	if cardType != "" {
		t, err := game.ParseCardType(cardType)
		if err != nil {
			return nil, err
		}
		q = q.Where("type = ?", t.String())
	}
	var recs []CardRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return toCards(recs)
}

// SearchCards matches query against card names and text, case-insensitively.
func (s *Store) SearchCards(query string) ([]*game.Card, error) {
	like := "%" + strings.ToLower(query) + "%"
	var recs []CardRecord
	err := s.db.Where("LOWER(name) LIKE ? OR LOWER(text) LIKE ?", like, like).Order("id").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toCards(recs)
}

func toCards(recs []CardRecord) ([]*game.Card, error) {
	out := make([]*game.Card, 0, len(recs))
	for _, r := range recs {
		c, err := r.Card()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DeleteCard removes a card unless a deck still uses it.
func (s *Store) DeleteCard(id string) error {
	var uses int64
	if err := s.db.Model(&DeckCardRecord{}).Where("card_id = ?", id).Count(&uses).Error; err != nil {
		return err
	}
	var leads int64
	if err := s.db.Model(&DeckRecord{}).Where("leader_id = ?", id).Count(&leads).Error; err != nil {
		return err
	}
	if uses+leads > 0 {
		return fmt.Errorf("card %q is used by %d deck(s)", id, uses+leads)
	}
	res := s.db.Delete(&CardRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w %q", game.ErrUnknownCard, id)
	}
	return nil
}

// --- Decks ---

// SaveDeck stores a validated deck, replacing any earlier list with the same id.
// Its cards must already be saved.
func (s *Store) SaveDeck(d *game.Deck) error {
	rec := DeckRecord{ID: d.ID, Name: d.Name, LeaderID: d.Leader.ID}
	index := make(map[string]int)
	for _, c := range d.Cards {
		if i, ok := index[c.ID]; ok {
			rec.Cards[i].Quantity++
			continue
		}
		index[c.ID] = len(rec.Cards)
		rec.Cards = append(rec.Cards, DeckCardRecord{DeckID: d.ID, CardID: c.ID, Position: len(rec.Cards), Quantity: 1})
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", d.ID).Delete(&DeckCardRecord{}).Error; err != nil {
			return err
		}
		cards := rec.Cards
		rec.Cards = nil
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return err
		}
		return tx.Create(&cards).Error
	})
}

// GetDeck loads and validates a deck with all of its cards.
func (s *Store) GetDeck(id string) (*game.Deck, error) {
	var rec DeckRecord
	err := s.db.Preload("Cards", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w %q", game.ErrUnknownDeck, id)
		}
		return nil, err
	}

	ids := []string{rec.LeaderID}
	entry := game.DeckEntry{ID: rec.ID, Name: rec.Name, Leader: rec.LeaderID}
	for _, dc := range rec.Cards {
		ids = append(ids, dc.CardID)
		entry.Cards = append(entry.Cards, game.CardEntry{ID: dc.CardID, Count: dc.Quantity})
	}
	var cardRecs []CardRecord
	if err := s.db.Where("id IN ?", ids).Find(&cardRecs).Error; err != nil {
		return nil, err
	}
	cards := make(map[string]*game.Card, len(cardRecs))
	for _, cr := range cardRecs {
		c, err := cr.Card()
		if err != nil {
			return nil, err
		}
		cards[c.ID] = c
	}
	return game.BuildDeck(entry, cards)
}

// ListDecks returns deck headers (without cards) ordered by name.
func (s *Store) ListDecks() ([]DeckRecord, error) {
	var recs []DeckRecord
	err := s.db.Order("name").Order("id").Find(&recs).Error
	return recs, err
}

func (s *Store) DeleteDeck(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", id).Delete(&DeckCardRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&DeckRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w %q", game.ErrUnknownDeck, id)
		}
		return nil
	})
}

// Import saves every card and deck of a catalog in one transaction.
func (s *Store) Import(cat *game.MemoryCatalog) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inner := &Store{db: tx, log: s.log}
		for _, c := range cat.Cards() {
			if err := inner.SaveCard(c); err != nil {
				return fmt.Errorf("card %s: %w", c.ID, err)
			}
		}
		for _, d := range cat.Decks() {
			if err := inner.SaveDeck(d); err != nil {
				return fmt.Errorf("deck %s: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("catalog imported", zap.Int("cards", len(cat.Cards())), zap.Int("decks", len(cat.Decks())))
	return nil
}

// --- Archive ---

// SaveGame archives a finished game.
func (s *Store) SaveGame(rec *GameRecord) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("archive game %s: %w", rec.ID, err)
	}
	s.log.Info("game archived",
		zap.String("game", rec.ID), zap.Int("winner", rec.Winner), zap.Int("turns", rec.Turns))
	return nil
}

func (s *Store) GetGame(id string) (*GameRecord, error) {
	var rec GameRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListGames returns the most recent archived games, newest first, without their
// snapshot and replay payloads.
func (s *Store) ListGames(limit int) ([]GameRecord, error) {
	var recs []GameRecord
	err := s.db.Omit("snapshot", "replay").Order("created_at DESC").Order("id").Limit(limit).Find(&recs).Error
	return recs, err
}
