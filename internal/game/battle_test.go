package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/grandline/internal/log"
)

// battleFixture is turn 3, P1's main phase, with 4 active DON!! each.
func battleFixture(t *testing.T, p0, p1 deckSpec) *fixture {
	t.Helper()
	f := newFixture(t, p0, p1)
	f.toMain(0)
	f.pass()
	f.pass()
	require.Equal(t, 3, f.gs.Turn)
	f.don(1, 4)
	return f
}

func TestEqualPowerDestroysCharacter(t *testing.T) {
	striker := characterCard("Striker", 3, 5000, 0, "")
	target := characterCard("Target", 3, 5000, 0, "")
	f := battleFixture(t, deckSpec{Hand: []*Card{striker}}, deckSpec{Hand: []*Card{target}})
	s := f.field(0, "Striker")
	tg := f.field(1, "Target")
	tg.Rested = true

	f.apply(f.attack(s, tg))

	assert.Nil(t, f.gs.Battle)
	assert.True(t, s.Rested, "attacker rests on declaration")
	assert.Equal(t, ZoneTrash, tg.Zone)
	assert.Nil(t, f.gs.Players[1].Character(tg.ID))

	resolved := f.events.EventsOfType(log.EventBattleResolve)
	require.Len(t, resolved, 1)
	assert.Contains(t, resolved[0].Details, "5000 vs 5000")
	assert.Len(t, f.events.EventsOfType(log.EventDestroy), 1)
}

func TestFailedAttackOnlyRestsAttacker(t *testing.T) {
	weak := characterCard("Weak", 1, 2000, 0, "")
	f := battleFixture(t, deckSpec{Hand: []*Card{weak}}, deckSpec{})
	w := f.field(0, "Weak")
	lifeBefore := len(f.gs.Players[1].Life)

	f.apply(f.attack(w, f.gs.Players[1].Leader))

	assert.True(t, w.Rested)
	assert.Len(t, f.gs.Players[1].Life, lifeBefore)
	assert.False(t, f.gs.Players[1].Defeated)
}

func TestLeaderDamageAndDefeatAtZeroLife(t *testing.T) {
	big := characterCard("Big", 1, 9000, 0, "")
	f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Leader: leaderCard("Glass", 5000, 1)})
	b := f.field(0, "Big")
	opp := f.gs.Players[1]
	handBefore := len(opp.Hand)

	f.apply(f.attack(b, opp.Leader))
	assert.Empty(t, opp.Life)
	assert.Len(t, opp.Hand, handBefore+1, "life card goes to hand")
	assert.False(t, opp.Defeated, "reaching zero life is not a loss")
	assert.False(t, f.gs.Over)

	// Leader attacks next while the defender sits at zero.
	f.apply(f.attack(f.gs.Players[0].Leader, opp.Leader))
	assert.True(t, opp.Defeated)
	assert.True(t, f.gs.Over)
	assert.Equal(t, 0, f.gs.Winner)
	assert.Len(t, f.events.EventsOfType(log.EventWin), 1)

	rej := Validate(f.gs, Action{Type: ActionPassPhase, Player: 0})
	require.NotNil(t, rej)
	assert.Equal(t, RejectGameOver, rej.Reason)
}

func TestBlockerRedirectsAttack(t *testing.T) {
	big := characterCard("Big", 1, 6000, 0, "")
	wall := characterCard("Wall", 2, 4000, 0, "[Blocker]")
	f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Hand: []*Card{wall}})
	b := f.field(0, "Big")
	w := f.field(1, "Wall")
	opp := f.gs.Players[1]

	f.apply(f.attack(b, opp.Leader))
	require.NotNil(t, f.gs.Battle)
	assert.Equal(t, CombatBlocker, f.gs.Battle.Step)
	assert.Equal(t, 1, f.gs.Decider())
	assert.Equal(t, []Action{
		{Type: ActionUseBlocker, Player: 1, Card: w.ID},
		{Type: ActionDeclineBlock, Player: 1},
	}, LegalActions(f.gs, 1))
	assert.Empty(t, LegalActions(f.gs, 0), "attacker waits during the defender's step")

	f.apply(Action{Type: ActionUseBlocker, Player: 1, Card: w.ID})
	assert.Nil(t, f.gs.Battle, "no counters in hand, battle resolves")
	assert.Equal(t, ZoneTrash, w.Zone)
	assert.Len(t, opp.Life, 5, "leader untouched")
	assert.Len(t, f.events.EventsOfType(log.EventBlock), 1)
}

func TestCountersModifyPower(t *testing.T) {
	big := characterCard("Big", 1, 6000, 0, "")
	boost := eventCard("Boost", 1, "[Counter] +2000 power during this battle.")
	sap := eventCard("Sap", 0, "[Counter -3000] Give the attacker -3000 power.")
	helper := characterCard("Helper", 2, 3000, 1000, "")
	f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Hand: []*Card{boost, sap, helper}})
	b := f.field(0, "Big")
	opp := f.gs.Players[1]

	f.apply(f.attack(b, opp.Leader))
	require.NotNil(t, f.gs.Battle)
	assert.Equal(t, CombatCounter, f.gs.Battle.Step, "no blockers, straight to counters")
	assert.ElementsMatch(t, []int{f.card(1, "Boost").ID, f.card(1, "Sap").ID, f.card(1, "Helper").ID}, f.gs.Battle.Candidates)

	f.apply(Action{Type: ActionUseCounter, Player: 1, Card: f.card(1, "Boost").ID})
	assert.Equal(t, 3, opp.Resources.Active, "event counters cost DON!!")
	assert.Equal(t, ZoneTrash, f.card(1, "Boost").Zone)
	atk, def := f.gs.BattlePower()
	assert.Equal(t, 6000, atk)
	assert.Equal(t, 7000, def)

	f.apply(Action{Type: ActionUseCounter, Player: 1, Card: f.card(1, "Sap").ID})
	atk, def = f.gs.BattlePower()
	assert.Equal(t, 3000, atk)
	assert.Equal(t, 7000, def)
	assert.Equal(t, []Modifier{
		{Source: f.card(1, "Boost").ID, Side: SideDefender, Amount: 2000},
		{Source: f.card(1, "Sap").ID, Side: SideAttacker, Amount: -3000},
	}, f.gs.Battle.Modifiers)

	f.apply(Action{Type: ActionEndCounter, Player: 1})
	assert.Nil(t, f.gs.Battle)
	assert.Len(t, opp.Life, 5)
	assert.Equal(t, ZoneHand, f.card(1, "Helper").Zone, "unused counter stays in hand")
}

func TestAttachedDonOnlyCountsOnOwnersTurn(t *testing.T) {
	f := battleFixture(t, deckSpec{}, deckSpec{})
	me, opp := f.gs.Players[0], f.gs.Players[1]

	f.apply(Action{Type: ActionAttachResource, Player: 0, Target: me.Leader.ID})
	require.NoError(t, opp.Resources.Attach(opp.Leader.ID))

	assert.Equal(t, 6000, f.gs.Power(me.Leader))
	assert.Equal(t, 5000, f.gs.Power(opp.Leader), "defender's DON!! does not apply")

	f.apply(f.attack(me.Leader, opp.Leader))
	resolved := f.events.EventsOfType(log.EventBattleResolve)
	require.Len(t, resolved, 1)
	assert.Contains(t, resolved[0].Details, "6000 vs 5000")
}

func TestDestroyedCharacterReturnsAttachedDon(t *testing.T) {
	target := characterCard("Target", 1, 1000, 0, "")
	f := battleFixture(t, deckSpec{}, deckSpec{Hand: []*Card{target}})
	tg := f.field(1, "Target")
	tg.Rested = true
	opp := f.gs.Players[1]
	require.NoError(t, opp.Resources.Attach(tg.ID))
	require.NoError(t, opp.Resources.Attach(tg.ID))

	f.apply(f.attack(f.gs.Players[0].Leader, tg))
	assert.Equal(t, ZoneTrash, tg.Zone)
	assert.Zero(t, opp.Resources.AttachedTo(tg.ID))
	assert.Equal(t, 2, opp.Resources.Rested)
	assert.Equal(t, ResourceDeckSize, opp.Resources.Total()+opp.Resources.Deck)
}

type recordingTriggers struct {
	answer bool
	seen   []string
}

func (r *recordingTriggers) ActivateTrigger(gs *GameState, player int, card *CardInstance) bool {
	r.seen = append(r.seen, card.Card.Name)
	return r.answer
}

func TestTriggerDetectionAndPolicy(t *testing.T) {
	surprise := eventCard("Surprise", 1, "[Trigger] Draw 1 card.")
	for _, activate := range []bool{false, true} {
		f := battleFixture(t, deckSpec{}, deckSpec{Life: []*Card{surprise}})
		policy := &recordingTriggers{answer: activate}
		f.rules.Triggers = policy
		opp := f.gs.Players[1]
		require.Equal(t, "Surprise", opp.Life[len(opp.Life)-1].Card.Name)

		f.apply(Action{Type: ActionAttachResource, Player: 0, Target: f.gs.Players[0].Leader.ID})
		f.apply(f.attack(f.gs.Players[0].Leader, opp.Leader))

		assert.Equal(t, []string{"Surprise"}, policy.seen)
		assert.Len(t, f.events.EventsOfType(log.EventTriggerRevealed), 1)
		if activate {
			assert.Equal(t, ZoneTrash, f.card(1, "Surprise").Zone)
			assert.Len(t, f.events.EventsOfType(log.EventTriggerActivated), 1)
		} else {
			assert.Equal(t, ZoneHand, f.card(1, "Surprise").Zone)
			assert.Empty(t, f.events.EventsOfType(log.EventTriggerActivated))
		}
	}
}

// scriptedDefense answers one blocker and a fixed counter list.
type scriptedDefense struct {
	blocker  int
	counters []int
}

func (d scriptedDefense) ChooseBlocker(_ *GameState, candidates []int) (int, bool) {
	for _, c := range candidates {
		if c == d.blocker {
			return c, true
		}
	}
	return 0, false
}

func (d scriptedDefense) ChooseCounters(*GameState, []int) []int { return d.counters }

func TestStepwiseAndOneShotAgree(t *testing.T) {
	big := characterCard("Big", 1, 7000, 0, "")
	wall := characterCard("Wall", 1, 4000, 0, "[Blocker]")
	boost := eventCard("Boost", 1, "[Counter] +2000 power during this battle.")
	helper := characterCard("Helper", 2, 3000, 1000, "")
	build := func() (*fixture, Action, scriptedDefense) {
		f := battleFixture(t, deckSpec{Hand: []*Card{big}}, deckSpec{Hand: []*Card{wall, boost, helper}})
		f.field(1, "Wall")
		b := f.field(0, "Big")
		d := scriptedDefense{
			blocker:  f.card(1, "Wall").ID,
			counters: []int{f.card(1, "Boost").ID, f.card(1, "Helper").ID},
		}
		return f, f.attack(b, f.gs.Players[1].Leader), d
	}

	step, atk, d := build()
	step.apply(atk)
	step.apply(Action{Type: ActionUseBlocker, Player: 1, Card: d.blocker})
	for _, id := range d.counters {
		if step.gs.Battle != nil {
			step.apply(Action{Type: ActionUseCounter, Player: 1, Card: id})
		}
	}
	if step.gs.Battle != nil {
		step.apply(Action{Type: ActionEndCounter, Player: 1})
	}

	shot, atk2, d2 := build()
	require.NoError(t, shot.rules.Execute(shot.gs, atk2, d2))

	assert.Equal(t, string(step.snapshot()), string(shot.snapshot()))
	// 4000 + 2000 + 1000 ties the attacker's 7000, and ties go to the attacker.
	assert.Equal(t, ZoneTrash, step.card(1, "Wall").Zone)
	assert.Len(t, step.gs.Players[1].Life, 5)
}

func TestExecuteIsAtomic(t *testing.T) {
	f := battleFixture(t, deckSpec{}, deckSpec{})
	before := f.snapshot()
	seen := len(f.events.Events())

	err := f.rules.Execute(f.gs, Action{Type: ActionPlayCard, Player: 0, Card: 12345}, NoDefense{})
	require.Error(t, err)
	assert.Equal(t, string(before), string(f.snapshot()))
	assert.Len(t, f.events.Events(), seen)
}
