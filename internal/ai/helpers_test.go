package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/grandline/internal/game"
)

var captain = game.MustCard(game.CardDef{ID: "L-Captain", Name: "Captain", Type: game.CardTypeLeader, Power: 5000, Life: 5})

// deckhands are vanilla characters too expensive to play in short tests.
var deckhands = func() []*game.Card {
	out := make([]*game.Card, 13)
	for i := range out {
		out[i] = game.MustCard(game.CardDef{
			ID: fmt.Sprintf("C-Deckhand-%02d", i+1), Name: fmt.Sprintf("Deckhand %02d", i+1),
			Type: game.CardTypeCharacter, Cost: 9, Power: 1000,
		})
	}
	return out
}()

func character(name string, cost, power, counter int, text string) *game.Card {
	return game.MustCard(game.CardDef{ID: "C-" + name, Name: name, Type: game.CardTypeCharacter,
		Cost: cost, Power: power, Counter: counter, Text: text})
}

func event(name string, cost int, text string) *game.Card {
	return game.MustCard(game.CardDef{ID: "E-" + name, Name: name, Type: game.CardTypeEvent, Cost: cost, Text: text})
}

// buildDeck returns a NoShuffle deck whose opening hand starts with hand.
func buildDeck(t *testing.T, hand ...*game.Card) *game.Deck {
	t.Helper()
	var cards []*game.Card
	n := 0
	filler := func() *game.Card {
		c := deckhands[n/game.MaxCopies]
		n++
		return c
	}
	for i := 0; i < captain.Life; i++ {
		cards = append(cards, filler())
	}
	cards = append(cards, hand...)
	for len(cards) < game.DeckSize {
		cards = append(cards, filler())
	}
	deck, err := game.NewDeck("test", "Test", captain, cards)
	require.NoError(t, err)
	return deck
}

func newGame(t *testing.T, hand0, hand1 []*game.Card) *game.GameState {
	t.Helper()
	gs, err := game.NewGame(game.GameConfig{
		ID:        "ai-test",
		Decks:     [2]*game.Deck{buildDeck(t, hand0...), buildDeck(t, hand1...)},
		Seed:      1,
		NoShuffle: true,
	})
	require.NoError(t, err)
	return gs
}

// atTurnThree passes until P1 (index 0) is in its second main phase, when it may
// attack.
func atTurnThree(t *testing.T, hand0, hand1 []*game.Card) (*game.GameState, *game.Rules) {
	t.Helper()
	gs := newGame(t, hand0, hand1)
	rules := game.NewRules(nil, zaptest.NewLogger(t))
	for gs.Turn < 3 {
		require.NoError(t, rules.Apply(gs, game.Action{Type: game.ActionPassPhase, Player: gs.Active}))
	}
	require.Equal(t, game.PhaseMain, gs.Phase)
	require.Equal(t, 0, gs.Active)
	return gs, rules
}

func inHand(t *testing.T, gs *game.GameState, player int, name string) *game.CardInstance {
	t.Helper()
	for _, ci := range gs.Players[player].Hand {
		if ci.Card.Name == name {
			return ci
		}
	}
	t.Fatalf("%s not in P%d's hand", name, player+1)
	return nil
}

func onField(t *testing.T, gs *game.GameState, player int, name string) *game.CardInstance {
	t.Helper()
	for _, ci := range gs.Players[player].Characters {
		if ci.Card.Name == name {
			return ci
		}
	}
	t.Fatalf("%s not on P%d's field", name, player+1)
	return nil
}

// emptyLife moves every life card of player to the trash.
func emptyLife(t *testing.T, gs *game.GameState, player int) {
	t.Helper()
	for len(gs.Players[player].Life) > 0 {
		top := gs.Players[player].Life[len(gs.Players[player].Life)-1]
		_, err := gs.MoveCard(player, top.ID, game.ZoneLife, game.ZoneTrash)
		require.NoError(t, err)
	}
}

func snapshot(t *testing.T, gs *game.GameState) string {
	t.Helper()
	data, err := game.MarshalSnapshot(gs)
	require.NoError(t, err)
	return string(data)
}

// blockerBattle has P2 play blockers on turn 2, then P1's leader attacks P2's
// leader on turn 3. The battle waits for P2's blocker decision.
func blockerBattle(t *testing.T, blockers ...*game.Card) (*game.GameState, *game.Rules) {
	t.Helper()
	gs := newGame(t, nil, blockers)
	rules := game.NewRules(nil, zaptest.NewLogger(t))
	pass := func() {
		require.NoError(t, rules.Apply(gs, game.Action{Type: game.ActionPassPhase, Player: gs.Active}))
	}
	pass()
	pass()
	require.Equal(t, 1, gs.Active)
	for _, b := range blockers {
		require.NoError(t, rules.Apply(gs, game.Action{Type: game.ActionPlayCard, Player: 1, Card: inHand(t, gs, 1, b.Name).ID}))
	}
	pass()
	require.Equal(t, 3, gs.Turn)
	attack := game.Action{Type: game.ActionAttack, Player: 0, Card: gs.Players[0].Leader.ID, Target: gs.Players[1].Leader.ID}
	require.NoError(t, rules.Apply(gs, attack))
	require.NotNil(t, gs.Battle)
	require.Equal(t, game.CombatBlocker, gs.Battle.Step)
	return gs, rules
}
