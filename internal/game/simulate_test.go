package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateNeverMutatesInput(t *testing.T) {
	big := characterCard("Big", 1, 6000, 0, "")
	wall := characterCard("Wall", 1, 4000, 0, "[Blocker]")
	helper := characterCard("Helper", 2, 3000, 2000, "")
	f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Hand: []*Card{wall, helper}})
	f.field(0, "Big")
	f.field(1, "Wall")
	before := f.snapshot()
	seen := len(f.events.Events())

	for _, a := range LegalActions(f.gs, 0) {
		next, err := Simulate(f.gs, a, NoDefense{})
		require.NoError(t, err, a.Describe(f.gs))
		require.NotNil(t, next)
		assert.NotSame(t, f.gs, next)
		assert.Equal(t, string(before), string(f.snapshot()), "after simulating %s", a.Describe(f.gs))
	}
	assert.Len(t, f.events.Events(), seen, "simulation is silent")
}

func TestSimulateResolvesBattleWithPolicy(t *testing.T) {
	big := characterCard("Big", 1, 6000, 0, "")
	wall := characterCard("Wall", 1, 4000, 0, "[Blocker]")
	f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Hand: []*Card{wall}})
	b := f.field(0, "Big")
	w := f.field(1, "Wall")
	attack := f.attack(b, f.gs.Players[1].Leader)

	undefended, err := Simulate(f.gs, attack, nil)
	require.NoError(t, err)
	assert.Nil(t, undefended.Battle, "no sub-phase is left pending")
	assert.Len(t, undefended.Players[1].Life, 4)

	blocked, err := Simulate(f.gs, attack, scriptedDefense{blocker: w.ID})
	require.NoError(t, err)
	assert.Nil(t, blocked.Battle)
	assert.Len(t, blocked.Players[1].Life, 5)
	assert.Equal(t, ZoneTrash, blocked.Find(w.ID).Zone)

	// The live game still waits on the defender.
	assert.Nil(t, f.gs.Battle)
	assert.Equal(t, ZoneCharacter, w.Zone)
}

func TestSimulateMatchesLiveExecution(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	f.toMain(0)
	pass := Action{Type: ActionPassPhase, Player: 0}

	sim, err := Simulate(f.gs, pass, nil)
	require.NoError(t, err)
	f.apply(pass)

	want := f.snapshot()
	got, err := MarshalSnapshot(sim)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestSimulateRejectsIllegalAction(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	next, err := Simulate(f.gs, Action{Type: ActionAttack, Player: 0, Card: 1, Target: 52}, nil)
	assert.Nil(t, next)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, RejectWrongPhase, rej.Reason)
}
