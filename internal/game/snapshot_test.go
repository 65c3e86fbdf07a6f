package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTripIsByteStable(t *testing.T) {
	big := characterCard("Big", 1, 6000, 0, "")
	wall := characterCard("Wall", 1, 4000, 0, "[Blocker]")
	boost := eventCard("Boost", 1, "[Counter] +2000 power during this battle.")
	f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Hand: []*Card{wall, boost}})
	f.field(1, "Wall")
	b := f.field(0, "Big")
	f.apply(Action{Type: ActionAttachResource, Player: 0, Target: b.ID})
	f.gs.Players[0].PlayedThisTurn[b.ID] = true
	f.apply(f.attack(f.gs.Players[0].Leader, f.gs.Players[1].Leader))
	require.NotNil(t, f.gs.Battle, "snapshot taken mid-battle")

	first := f.snapshot()
	restored, err := UnmarshalSnapshot(first)
	require.NoError(t, err)
	second, err := MarshalSnapshot(restored)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	sum1, err := Checksum(f.gs)
	require.NoError(t, err)
	sum2, err := Checksum(restored)
	require.NoError(t, err)
	assert.Equal(t, sum1, sum2)
	assert.Len(t, sum1, 64)
	assert.Equal(t, sum1, ChecksumOf(first))

	// The restored game continues exactly like the original.
	a := Action{Type: ActionUseBlocker, Player: 1, Card: f.card(1, "Wall").ID}
	f.apply(a)
	require.NoError(t, NewRules(nil, nil).Apply(restored, a))
	again, _ := MarshalSnapshot(restored)
	assert.Equal(t, string(f.snapshot()), string(again))
}

func TestSnapshotRestoresCardAbilities(t *testing.T) {
	rusher := characterCard("Rusher", 1, 3000, 0, "[Rush] [On Play] Draw 1 card.")
	f := newFixture(t, deckSpec{Hand: []*Card{rusher}}, deckSpec{})
	restored, err := UnmarshalSnapshot(f.snapshot())
	require.NoError(t, err)

	ci := restored.Find(f.card(0, "Rusher").ID)
	require.NotNil(t, ci)
	assert.True(t, ci.Card.HasRush())
	assert.True(t, ci.Card.Abilities().Has(AbilityOnPlay))
}

func TestSnapshotRejectsCorruptState(t *testing.T) {
	f := newFixture(t, deckSpec{}, deckSpec{})
	var s Snapshot
	require.NoError(t, json.Unmarshal(f.snapshot(), &s))

	dup := s
	dup.Players[0].Trash = append(dup.Players[0].Trash, dup.Players[0].Hand[0])
	_, err := dup.Restore()
	assert.True(t, errors.Is(err, ErrInvariant))

	unknown := s
	unknown.Cards = unknown.Cards[1:]
	_, err = unknown.Restore()
	assert.ErrorIs(t, err, ErrUnknownCard)

	_, err = UnmarshalSnapshot([]byte(`{"version": 99}`))
	assert.Error(t, err)
}

func TestApplyRestoresStateOnInvariantFault(t *testing.T) {
	f := battleFixture(t, deckSpec{}, deckSpec{})
	// Corrupt the resource accounting so the post-action check fails.
	f.gs.Players[1].Resources.Deck++
	before := f.snapshot()
	seen := len(f.events.Events())

	err := f.rules.Apply(f.gs, Action{Type: ActionAttachResource, Player: 0, Target: f.gs.Players[0].Leader.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "state restored")
	assert.Equal(t, string(before), string(f.snapshot()))
	assert.Len(t, f.events.Events(), seen, "no events from a failed action")
}

func TestReplayReproducesMatch(t *testing.T) {
	brute := characterCard("Brute", 2, 6000, 0, "")
	surprise := eventCard("Surprise", 1, "[Trigger] Draw 1 card.")
	p0 := NewScriptedController(t, "P1").
		AddAction(ActionPlayCard, "Brute").
		AddAttack("Brute", "Captain")
	p1 := NewScriptedController(t, "P2").AddYesNo(false).AddYesNo(true)

	cfg := MatchConfig{MaxTurns: 6, Game: GameConfig{
		ID: "replayed",
		Decks: [2]*Deck{
			deckSpec{Hand: []*Card{brute}}.build(t),
			deckSpec{Life: []*Card{surprise}}.build(t),
		},
		Seed: 3,
	}}
	m, _ := runMatchToCompletion(t, cfg, p0, p1)
	require.NotEmpty(t, m.Replay.Actions)
	assert.Equal(t, []bool{true}, m.Replay.Triggers)

	var buf bytes.Buffer
	require.NoError(t, m.Replay.Encode(&buf))
	rp, err := DecodeReplay(&buf)
	require.NoError(t, err)

	final, err := rp.Run(nil, -1)
	require.NoError(t, err)
	// Turn-limit bookkeeping happens outside actions.
	final.Over, final.Winner, final.Result = m.State.Over, m.State.Winner, m.State.Result

	want, _ := MarshalSnapshot(m.State)
	got, _ := MarshalSnapshot(final)
	assert.Equal(t, string(want), string(got))
}
