package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	DeckSize  = 50
	MaxCopies = 4
)

var ErrInvalidDeck = errors.New("invalid deck")

// Deck is a validated deck list: one leader plus exactly DeckSize other cards.
type Deck struct {
	ID     string
	Name   string
	Leader *Card
	Cards  []*Card
}

// NewDeck validates the composition and returns the deck. Invalid decks are rejected
// with every problem found; nothing is repaired.
func NewDeck(id, name string, leader *Card, cards []*Card) (*Deck, error) {
	var problems []string
	if leader == nil {
		problems = append(problems, "missing leader")
	} else if leader.Type != CardTypeLeader {
		problems = append(problems, fmt.Sprintf("leader slot holds %s %q", leader.Type, leader.Name))
	}
	if len(cards) != DeckSize {
		problems = append(problems, fmt.Sprintf("%d cards, need exactly %d", len(cards), DeckSize))
	}

	copies := make(map[string]int)
	for _, c := range cards {
		if c == nil {
			problems = append(problems, "nil card")
			continue
		}
		if c.Type == CardTypeLeader {
			problems = append(problems, fmt.Sprintf("extra leader %q in main deck", c.Name))
			continue
		}
		copies[c.Name]++
	}
	var names []string
	for n, count := range copies {
		if count > MaxCopies {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		problems = append(problems, fmt.Sprintf("%d copies of %q, max %d", copies[n], n, MaxCopies))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidDeck, name, strings.Join(problems, "; "))
	}
	return &Deck{
		ID:     id,
		Name:   name,
		Leader: leader,
		Cards:  append([]*Card(nil), cards...),
	}, nil
}

// --- Deck files ---

// DeckFile represents the top-level YAML structure of a catalog file.
type DeckFile struct {
	Cards []CardDef   `yaml:"cards"`
	Decks []DeckEntry `yaml:"decks"`
}

// DeckEntry represents a single deck in the YAML file.
type DeckEntry struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Leader string      `yaml:"leader"`
	Cards  []CardEntry `yaml:"cards"`
}

// CardEntry represents a card id and its count in a deck.
type CardEntry struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// BuildDeck resolves a deck entry against the card table.
func BuildDeck(entry DeckEntry, cards map[string]*Card) (*Deck, error) {
	leader, ok := cards[entry.Leader]
	if !ok {
		return nil, fmt.Errorf("%w %q: unknown leader %q", ErrInvalidDeck, entry.Name, entry.Leader)
	}
	var list []*Card
	for _, ce := range entry.Cards {
		c, ok := cards[ce.ID]
		if !ok {
			return nil, fmt.Errorf("%w %q: unknown card %q", ErrInvalidDeck, entry.Name, ce.ID)
		}
		for i := 0; i < ce.Count; i++ {
			list = append(list, c)
		}
	}
	return NewDeck(entry.ID, entry.Name, leader, list)
}
