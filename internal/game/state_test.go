package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/grandline/internal/log"
)

func TestNewGameDealsOpeningPosition(t *testing.T) {
	luffy := leaderCard("Luffy", 5000, 5)
	zoro := leaderCard("Zoro", 5000, 4)
	f := newFixture(t, deckSpec{Leader: luffy}, deckSpec{Leader: zoro}, func(c *GameConfig) {
		c.StartingResources = 3
	})
	gs := f.gs

	assert.Equal(t, PhaseSetup, gs.Phase)
	assert.Equal(t, 0, gs.Turn)
	assert.Equal(t, -1, gs.Winner)
	for i, p := range gs.Players {
		assert.Len(t, p.Hand, OpeningHandSize, "P%d hand", i+1)
		assert.Equal(t, p.Leader.Card.Life, len(p.Life), "P%d life", i+1)
		assert.Equal(t, DeckSize-p.Leader.Card.Life-OpeningHandSize, p.DeckCount())
		assert.Equal(t, 3, p.Resources.Active, "pool starts at the configured value")
		assert.Equal(t, ResourceDeckSize-3, p.Resources.Deck)
		assert.True(t, p.FirstTurn)
		assert.Equal(t, ZoneLeader, p.Leader.Zone)
	}
	assert.Len(t, gs.Players[1].Life, 4)
	require.NoError(t, gs.CheckInvariants())
}

func TestNewGameIsDeterministicForSeed(t *testing.T) {
	decks := [2]*Deck{deckSpec{}.build(t), deckSpec{}.build(t)}
	a, err := NewGame(GameConfig{ID: "g", Decks: decks, Seed: 42})
	require.NoError(t, err)
	b, err := NewGame(GameConfig{ID: "g", Decks: decks, Seed: 42})
	require.NoError(t, err)
	c, err := NewGame(GameConfig{ID: "g", Decks: decks, Seed: 43})
	require.NoError(t, err)

	sa, _ := MarshalSnapshot(a)
	sb, _ := MarshalSnapshot(b)
	sc, _ := MarshalSnapshot(c)
	assert.Equal(t, string(sa), string(sb))
	assert.NotEqual(t, string(sa), string(sc))
}

func TestNewGameRejectsBadConfig(t *testing.T) {
	deck := deckSpec{}.build(t)
	_, err := NewGame(GameConfig{Decks: [2]*Deck{deck, nil}})
	assert.ErrorIs(t, err, ErrInvalidDeck)

	_, err = NewGame(GameConfig{Decks: [2]*Deck{deck, deck}, StartingPlayer: 2})
	assert.Error(t, err)

	_, err = NewGame(GameConfig{Decks: [2]*Deck{deck, deck}, StartingResources: 11})
	assert.Error(t, err)
}

func TestMoveCardCapacityLeavesStateUnchanged(t *testing.T) {
	var hand []*Card
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		hand = append(hand, characterCard(n, 1, 1000, 0, ""))
	}
	extra := characterCard("F", 1, 1000, 0, "")
	f := newFixture(t, deckSpec{Hand: hand, Draws: []*Card{extra}}, deckSpec{})
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		f.field(0, n)
	}
	before := f.snapshot()

	ci := f.card(0, "F")
	_, err := f.gs.MoveCard(0, ci.ID, ZoneDeck, ZoneCharacter)
	require.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, ZoneDeck, ci.Zone)
	assert.Equal(t, string(before), string(f.snapshot()))

	_, err = f.gs.MoveCard(0, ci.ID, ZoneHand, ZoneTrash)
	assert.ErrorIs(t, err, ErrNotInZone)
}

func TestCheckInvariantsDetectsDuplicates(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	p := f.gs.Players[0]
	p.Trash = append(p.Trash, p.Hand[0])

	err := f.gs.CheckInvariants()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.Contains(t, err.Error(), "present in 2 zones")
}

func TestCheckInvariantsBattleParticipants(t *testing.T) {
	boost := eventCard("Boost", 1, "[Counter] +2000 power during this battle.")
	f := battleFixture(t, deckSpec{}, deckSpec{Hand: []*Card{boost}})
	f.apply(f.attack(f.gs.Players[0].Leader, f.gs.Players[1].Leader))
	require.NotNil(t, f.gs.Battle, "waiting for a counter")
	require.NoError(t, f.gs.CheckInvariants())

	f.gs.Battle.Attacker = 9999
	err := f.gs.CheckInvariants()
	assert.ErrorIs(t, err, ErrInvariant)
	assert.ErrorContains(t, err, "battle attacker #9999 not in play")
}

func TestCheckInvariantsResourceAccounting(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	f.gs.Players[1].Resources.Active = 4 // appears without leaving the DON!! deck
	assert.ErrorIs(t, f.gs.CheckInvariants(), ErrInvariant)
}

func TestCardConservationThroughMatch(t *testing.T) {
	brute := characterCard("Brute", 2, 6000, 0, "")
	p0 := NewScriptedController(t, "P1").
		AddAction(ActionPlayCard, "Brute").
		AddAttack("Brute", "Captain")
	p1 := NewScriptedController(t, "P2")

	cfg := MatchConfig{Game: GameConfig{
		ID:    "conservation",
		Decks: [2]*Deck{deckSpec{Hand: []*Card{brute}}.build(t), deckSpec{}.build(t)},
		Seed:  7,
	}}
	m, logger := runMatchToCompletion(t, cfg, p0, p1)

	require.True(t, m.State.Over)
	for i, p := range m.State.Players {
		assert.Equal(t, p.CardCount+1, p.ZoneCardCount(), "P%d cards", i+1)
	}
	assert.NotEmpty(t, logger.EventsOfType(log.EventLifeDamage))
}

func TestRefreshNeverExceedsPool(t *testing.T) {
	r := Resources{Deck: 1, Active: 7, Rested: 1, Attached: map[int]int{5: 1}}
	detached, gained := r.Refresh()
	assert.Equal(t, 1, detached)
	assert.Equal(t, 1, gained)
	assert.Equal(t, 10, r.Active)
	assert.Equal(t, 0, r.Deck)
	assert.Empty(t, r.Attached)

	detached, gained = r.Refresh()
	assert.Zero(t, detached)
	assert.Zero(t, gained)
	assert.Equal(t, MaxResourcePool, r.Total())
}

func TestRefreshPhaseAcrossTurns(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	for turn := 1; turn <= 12; turn++ {
		f.toMain(f.gs.Active)
		for i, p := range f.gs.Players {
			assert.LessOrEqual(t, p.Resources.Total(), MaxResourcePool, "turn %d P%d", turn, i+1)
		}
		f.pass()
	}
	assert.Equal(t, MaxResourcePool, f.gs.Players[0].Resources.Total())
	assert.Zero(t, f.gs.Players[0].Resources.Deck)
}

func TestAdvanceCyclesPhases(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	type step struct {
		turn, active int
		phase        Phase
	}
	want := []step{
		{1, 0, PhaseRefresh}, {1, 0, PhaseDraw}, {1, 0, PhaseResource}, {1, 0, PhaseMain}, {1, 0, PhaseEnd},
		{2, 1, PhaseRefresh}, {2, 1, PhaseDraw}, {2, 1, PhaseResource}, {2, 1, PhaseMain}, {2, 1, PhaseEnd},
		{3, 0, PhaseRefresh},
	}
	var got []step
	for range want {
		require.NoError(t, f.rules.Advance(f.gs))
		got = append(got, step{f.gs.Turn, f.gs.Active, f.gs.Phase})
	}
	assert.Equal(t, want, got)
	assert.Equal(t, PhaseRefresh, PhaseSetup.Next())
	assert.Equal(t, PhaseRefresh, PhaseEnd.Next())
}

func TestCloneIsIndependent(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	f.toMain(0)
	f.field(0, f.gs.Players[0].Hand[0].Card.Name)
	require.NoError(t, f.gs.Players[0].Resources.Attach(f.gs.Players[0].Leader.ID))
	before := f.snapshot()

	cp := f.gs.Clone()
	cp.Players[0].Characters[0].Rested = true
	cp.Players[0].Resources.Attached[cp.Players[0].Leader.ID] = 3
	cp.Players[1].Hand = cp.Players[1].Hand[:1]
	cp.Players[0].PlayedThisTurn[99] = true
	cp.Turn = 9

	assert.Equal(t, string(before), string(f.snapshot()))
	assert.Same(t, f.gs.Players[0].Leader.Card, cp.Players[0].Leader.Card, "card definitions are shared")
}

func TestSummaryMentionsBothLeaders(t *testing.T) {
	f := newFixture(t, deckSpec{Leader: leaderCard("Luffy", 5000, 5)}, deckSpec{Leader: leaderCard("Kaido", 7000, 3)})
	s := f.gs.Summary()
	assert.Contains(t, s, "Luffy")
	assert.Contains(t, s, "Kaido")
	assert.Contains(t, s, "Setup Phase")
}
