package game

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCard = errors.New("unknown card")
	ErrUnknownDeck = errors.New("unknown deck")
)

// Catalog supplies read-only card definitions and validated deck lists.
type Catalog interface {
	GetCard(id string) (*Card, error)
	GetDeck(id string) (*Deck, error)
}

// MemoryCatalog is a Catalog backed by maps, filled from a YAML file or by hand.
type MemoryCatalog struct {
	cards map[string]*Card
	decks map[string]*Deck
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		cards: make(map[string]*Card),
		decks: make(map[string]*Deck),
	}
}

func (c *MemoryCatalog) AddCard(card *Card) {
	c.cards[card.ID] = card
}

func (c *MemoryCatalog) AddDeck(deck *Deck) {
	c.decks[deck.ID] = deck
}

func (c *MemoryCatalog) GetCard(id string) (*Card, error) {
	card, ok := c.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCard, id)
	}
	return card, nil
}

func (c *MemoryCatalog) GetDeck(id string) (*Deck, error) {
	deck, ok := c.decks[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDeck, id)
	}
	return deck, nil
}

// Cards returns all cards sorted by id.
func (c *MemoryCatalog) Cards() []*Card {
	out := make([]*Card, 0, len(c.cards))
	for _, card := range c.cards {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Decks returns all decks sorted by id.
func (c *MemoryCatalog) Decks() []*Deck {
	out := make([]*Deck, 0, len(c.decks))
	for _, d := range c.decks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadCatalogYAML reads a catalog file with `cards` and `decks` sections.
func LoadCatalogYAML(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalogYAML(data)
}

// ParseCatalogYAML validates every card and deck in the document. Any construction
// error rejects the whole catalog.
func ParseCatalogYAML(data []byte) (*MemoryCatalog, error) {
	var df DeckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	cat := NewMemoryCatalog()
	for _, def := range df.Cards {
		card, err := NewCard(def)
		if err != nil {
			return nil, err
		}
		if _, dup := cat.cards[card.ID]; dup {
			return nil, fmt.Errorf("%w %q: duplicate id", ErrInvalidCard, card.ID)
		}
		cat.AddCard(card)
	}
	for _, entry := range df.Decks {
		deck, err := BuildDeck(entry, cat.cards)
		if err != nil {
			return nil, err
		}
		cat.AddDeck(deck)
	}
	return cat, nil
}
