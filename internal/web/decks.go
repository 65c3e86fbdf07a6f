package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/store"
)

// Library lists the catalog for browsing. *store.Store implements it.
type Library interface {
	ListCards(cardType string) ([]*game.Card, error)
	ListDecks() ([]store.DeckRecord, error)
}

// CardInfo is the JSON representation of a card for the /api/cards endpoint.
type CardInfo struct {
	game.CardDef
	Blocker bool `json:"blocker,omitempty"`
	Rush    bool `json:"rush,omitempty"`
	Trigger bool `json:"trigger,omitempty"`
	Bonus   int  `json:"counter_bonus,omitempty"` // what the card adds when used as a counter
}

// DeckInfo is the JSON representation of a deck for the /api/decks endpoint.
type DeckInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Leader string `json:"leader"`
}

func (s *Server) handleCards(c *gin.Context) {
	cards, err := s.library.ListCards(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := make([]CardInfo, 0, len(cards))
	for _, card := range cards {
		out = append(out, CardInfo{
			CardDef: card.Def(),
			Blocker: card.HasBlocker(),
			Rush:    card.HasRush(),
			Trigger: card.HasTrigger(),
			Bonus:   card.CounterBonus(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDecks(c *gin.Context) {
	decks, err := s.library.ListDecks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]DeckInfo, 0, len(decks))
	for _, d := range decks {
		out = append(out, DeckInfo{ID: d.ID, Name: d.Name, Leader: d.LeaderID})
	}
	c.JSON(http.StatusOK, out)
}
