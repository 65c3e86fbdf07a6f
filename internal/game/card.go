package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxCost       = 10
	MaxPower      = 13000
	MinLeaderLife = 1
	MaxLeaderLife = 10
)

var ErrInvalidCard = errors.New("invalid card")

// CardDef is the plain definition of a card as stored by a catalog.
type CardDef struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Type    CardType `yaml:"type" json:"type"`
	Cost    int      `yaml:"cost" json:"cost"`
	Power   int      `yaml:"power" json:"power"`
	Counter int      `yaml:"counter" json:"counter"`
	Life    int      `yaml:"life" json:"life"`
	Text    string   `yaml:"text" json:"text"`
}

// Card is an immutable card definition with its ability tags parsed once.
type Card struct {
	ID      string
	Name    string
	Type    CardType
	Cost    int
	Power   int
	Counter int
	Life    int // leaders only
	Text    string

	abilities Abilities
}

// NewCard validates a definition and parses its ability text.
func NewCard(def CardDef) (*Card, error) {
	var problems []string
	if def.ID == "" {
		problems = append(problems, "missing id")
	}
	if def.Name == "" {
		problems = append(problems, "missing name")
	}
	if def.Cost < 0 || def.Cost > MaxCost {
		problems = append(problems, fmt.Sprintf("cost %d outside 0-%d", def.Cost, MaxCost))
	}
	if def.Power < 0 || def.Power > MaxPower {
		problems = append(problems, fmt.Sprintf("power %d outside 0-%d", def.Power, MaxPower))
	}
	if def.Counter != 0 && def.Counter != 1000 && def.Counter != 2000 {
		problems = append(problems, fmt.Sprintf("counter %d not one of 0, 1000, 2000", def.Counter))
	}
	if def.Type == CardTypeLeader {
		if def.Life < MinLeaderLife || def.Life > MaxLeaderLife {
			problems = append(problems, fmt.Sprintf("leader life %d outside %d-%d", def.Life, MinLeaderLife, MaxLeaderLife))
		}
	} else if def.Life != 0 {
		problems = append(problems, fmt.Sprintf("life value on a %s card", def.Type))
	}

	abilities, err := ParseAbilities(def.Text)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidCard, def.ID, strings.Join(problems, "; "))
	}

	return &Card{
		ID:        def.ID,
		Name:      def.Name,
		Type:      def.Type,
		Cost:      def.Cost,
		Power:     def.Power,
		Counter:   def.Counter,
		Life:      def.Life,
		Text:      def.Text,
		abilities: abilities,
	}, nil
}

// MustCard is NewCard for static fixtures; it panics on an invalid definition.
func MustCard(def CardDef) *Card {
	c, err := NewCard(def)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Card) String() string {
	return c.Name
}

// Abilities returns the parsed ability tags.
func (c *Card) Abilities() Abilities {
	return c.abilities
}

// Def returns the plain definition the card was built from.
func (c *Card) Def() CardDef {
	return CardDef{
		ID:      c.ID,
		Name:    c.Name,
		Type:    c.Type,
		Cost:    c.Cost,
		Power:   c.Power,
		Counter: c.Counter,
		Life:    c.Life,
		Text:    c.Text,
	}
}

func (c *Card) HasRush() bool    { return c.abilities.Has(AbilityRush) }
func (c *Card) HasBlocker() bool { return c.abilities.Has(AbilityBlocker) }
func (c *Card) HasTrigger() bool { return c.abilities.Has(AbilityTrigger) }

// CounterBonus is the power modifier this card contributes when used during the
// counter step, or 0 if it cannot be used there. Events need a counter tag;
// characters use their printed counter value.
func (c *Card) CounterBonus() int {
	switch c.Type {
	case CardTypeEvent:
		if !c.abilities.Has(AbilityCounter) {
			return 0
		}
		if v := c.abilities.CounterValue(); v != 0 {
			return v
		}
		return c.Counter
	case CardTypeCharacter:
		return c.Counter
	}
	return 0
}

// CounterOnly reports whether an event can only be used during battle.
func (c *Card) CounterOnly() bool {
	if c.Type != CardTypeEvent || !c.abilities.Has(AbilityCounter) {
		return false
	}
	return !c.abilities.Has(AbilityMain) && !c.abilities.Has(AbilityActiveMain) && !c.abilities.Has(AbilityOnPlay)
}
