package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/grandline/internal/log"
)

func TestMatchPassingPlayersDeckOut(t *testing.T) {
	cfg := MatchConfig{Game: GameConfig{
		ID:    "deck-out",
		Decks: [2]*Deck{deckSpec{}.build(t), deckSpec{}.build(t)},
		Seed:  1,
	}}
	m, logger := runMatchToCompletion(t, cfg, NewScriptedController(t, "P1"), NewScriptedController(t, "P2"))

	// 40 cards remain after life and hand; P2 draws on even turns from turn 2.
	assert.Equal(t, 0, m.State.Winner)
	assert.Equal(t, 82, m.State.Turn)
	assert.True(t, m.State.Players[1].Defeated)
	assert.Len(t, logger.EventsOfType(log.EventDeckOut), 1)
	assert.Len(t, logger.EventsOfType(log.EventWin), 1)
}

func TestMatchStartingPlayerSkipsFirstDraw(t *testing.T) {
	cfg := MatchConfig{MaxTurns: 2, Game: GameConfig{
		Decks:          [2]*Deck{deckSpec{}.build(t), deckSpec{}.build(t)},
		Seed:           1,
		StartingPlayer: 1,
	}}
	m, logger := runMatchToCompletion(t, cfg, NewScriptedController(t, "P1"), NewScriptedController(t, "P2"))

	draws := logger.EventsOfType(log.EventDraw)
	require.NotEmpty(t, draws)
	assert.Equal(t, 2, draws[0].Turn, "no draw on turn 1")
	assert.Equal(t, 0, draws[0].Player)
	assert.Len(t, m.State.Players[1].Hand, OpeningHandSize+1, "P2 drew on turn 3 only")
	assert.Len(t, logger.EventsOfType(log.EventTurnLimit), 1)
	assert.Equal(t, -1, m.State.Winner)
}

func TestMatchMulligan(t *testing.T) {
	p0 := NewScriptedController(t, "P1").AddYesNo(true)
	p1 := NewScriptedController(t, "P2")
	cfg := MatchConfig{MaxTurns: 1, Game: GameConfig{
		Decks: [2]*Deck{deckSpec{}.build(t), deckSpec{}.build(t)},
		Seed:  9,
	}}
	m, logger := runMatchToCompletion(t, cfg, p0, p1)

	assert.True(t, m.State.Players[0].Mulliganed)
	assert.False(t, m.State.Players[1].Mulliganed)
	assert.Len(t, m.State.Players[0].Hand, OpeningHandSize)
	assert.Len(t, logger.EventsOfType(log.EventMulligan), 1)
	assert.Equal(t, ActionMulligan, m.Replay.Actions[0].Type)
	require.NotEmpty(t, p1.prompts)
	assert.Contains(t, p1.prompts[0], "opening hand")
}

func TestMatchFullAttackSequence(t *testing.T) {
	brute := characterCard("Brute", 2, 6000, 0, "")
	wall := characterCard("Wall", 1, 2000, 0, "[Blocker]")
	p0 := NewScriptedController(t, "P1").
		AddAction(ActionPlayCard, "Brute").
		AddAttach("Captain").
		AddAttack("Captain", "Captain").
		AddAttack("Brute", "Captain")
	p1 := NewScriptedController(t, "P2").
		AddAction(ActionPlayCard, "Wall").
		AddAction(ActionUseBlocker, "Wall")

	cfg := MatchConfig{MaxTurns: 4, Game: GameConfig{
		Decks: [2]*Deck{deckSpec{Hand: []*Card{brute}}.build(t), deckSpec{Hand: []*Card{wall}}.build(t)},
		Seed:  5,
	}}
	m, logger := runMatchToCompletion(t, cfg, p0, p1)

	// Turn 3: the leader attack is blocked by Wall, then Brute hits the leader.
	assert.Len(t, logger.EventsOfType(log.EventBlock), 1)
	assert.Len(t, logger.EventsOfType(log.EventDestroy), 1)
	assert.Len(t, logger.EventsOfType(log.EventLifeDamage), 1)
	assert.Len(t, m.State.Players[1].Life, 4)
	assert.Equal(t, ZoneTrash, m.State.Players[1].Trash[0].Zone)
}

type failingController struct{ *ScriptedController }

var errUnplugged = errors.New("controller unplugged")

func (failingController) ChooseAction(context.Context, *GameState, []Action) (Action, error) {
	return Action{}, errUnplugged
}

func TestMatchPropagatesControllerError(t *testing.T) {
	cfg := MatchConfig{Game: GameConfig{
		Decks: [2]*Deck{deckSpec{}.build(t), deckSpec{}.build(t)},
		Seed:  1,
	}}
	m, err := NewMatch(cfg, failingController{NewScriptedController(t, "P1")}, NewScriptedController(t, "P2"))
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	assert.ErrorIs(t, err, errUnplugged)
}

type illegalController struct{ *ScriptedController }

func (illegalController) ChooseAction(_ context.Context, gs *GameState, _ []Action) (Action, error) {
	return Action{Type: ActionAttack, Player: gs.Decider(), Card: 1, Target: 52}, nil
}

func TestMatchRejectsIllegalChoice(t *testing.T) {
	cfg := MatchConfig{Game: GameConfig{
		Decks: [2]*Deck{deckSpec{}.build(t), deckSpec{}.build(t)},
		Seed:  1,
	}}
	m, err := NewMatch(cfg, illegalController{NewScriptedController(t, "P1")}, NewScriptedController(t, "P2"))
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, RejectWrongPhase, rej.Reason)
}
