package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/grandline/internal/log"
)

// ScriptedController is a Controller that follows a predefined script of actions.
// Used in tests to deterministically drive the game.
type ScriptedController struct {
	t       *testing.T
	name    string
	actions []ScriptedAction
	pos     int

	// For ChooseYesNo prompts
	yesNoChoices []bool
	yesNoPos     int
	prompts      []string
}

type ScriptedAction struct {
	// Match by ActionType: the first action of this type wins
	Type ActionType
	// Optional: match by card name as well
	CardName string
	// Optional: match by target card name
	TargetName string
}

func NewScriptedController(t *testing.T, name string) *ScriptedController {
	return &ScriptedController{t: t, name: name}
}

func (sc *ScriptedController) AddAction(actionType ActionType, cardName string) *ScriptedController {
	sc.actions = append(sc.actions, ScriptedAction{Type: actionType, CardName: cardName})
	return sc
}

func (sc *ScriptedController) AddAttack(attackerName, targetName string) *ScriptedController {
	sc.actions = append(sc.actions, ScriptedAction{Type: ActionAttack, CardName: attackerName, TargetName: targetName})
	return sc
}

func (sc *ScriptedController) AddAttach(targetName string) *ScriptedController {
	sc.actions = append(sc.actions, ScriptedAction{Type: ActionAttachResource, TargetName: targetName})
	return sc
}

func (sc *ScriptedController) AddYesNo(answer bool) *ScriptedController {
	sc.yesNoChoices = append(sc.yesNoChoices, answer)
	return sc
}

func (sc *ScriptedController) ChooseAction(ctx context.Context, state *GameState, actions []Action) (Action, error) {
	if sc.pos < len(sc.actions) {
		// Peek at the next scripted action and consume it only if it matches.
		// This allows scripts to span multiple turns without scripting every pass.
		scripted := sc.actions[sc.pos]
		for _, a := range actions {
			if a.Type != scripted.Type {
				continue
			}
			if scripted.CardName != "" && nameOf(state, a.Card) != scripted.CardName {
				continue
			}
			if scripted.TargetName != "" && nameOf(state, a.Target) != scripted.TargetName {
				continue
			}
			sc.pos++
			return a, nil
		}
	}

	// Default priority: decline defensive options, then pass.
	for _, want := range []ActionType{ActionDeclineBlock, ActionEndCounter, ActionPassPhase} {
		for _, a := range actions {
			if a.Type == want {
				return a, nil
			}
		}
	}
	return actions[len(actions)-1], nil
}

func (sc *ScriptedController) ChooseYesNo(ctx context.Context, state *GameState, prompt string) (bool, error) {
	sc.prompts = append(sc.prompts, prompt)
	if sc.yesNoPos >= len(sc.yesNoChoices) {
		return false, nil
	}
	answer := sc.yesNoChoices[sc.yesNoPos]
	sc.yesNoPos++
	return answer, nil
}

func (sc *ScriptedController) Notify(ctx context.Context, event log.GameEvent) error {
	return nil
}

func nameOf(gs *GameState, id int) string {
	if ci := gs.Find(id); ci != nil {
		return ci.Card.Name
	}
	return ""
}

// --- Test card helpers ---

func leaderCard(name string, power, life int) *Card {
	return MustCard(CardDef{ID: "L-" + name, Name: name, Type: CardTypeLeader, Power: power, Life: life})
}

func characterCard(name string, cost, power, counter int, text string) *Card {
	return MustCard(CardDef{ID: "C-" + name, Name: name, Type: CardTypeCharacter, Cost: cost, Power: power, Counter: counter, Text: text})
}

func eventCard(name string, cost int, text string) *Card {
	return MustCard(CardDef{ID: "E-" + name, Name: name, Type: CardTypeEvent, Cost: cost, Text: text})
}

func stageCard(name string, cost int) *Card {
	return MustCard(CardDef{ID: "S-" + name, Name: name, Type: CardTypeStage, Cost: cost})
}

// fillers are vanilla characters too expensive to matter in short tests.
var fillers = func() []*Card {
	out := make([]*Card, 13)
	for i := range out {
		out[i] = characterCard(fmt.Sprintf("Deckhand %02d", i+1), 9, 1000, 0, "")
	}
	return out
}()

// deckSpec places cards in a NoShuffle deck. Life lists life cards in the order
// damage reveals them, Hand the opening hand, Draws the following draws. Missing
// slots are filled with vanilla fillers.
type deckSpec struct {
	Leader *Card
	Life   []*Card
	Hand   []*Card
	Draws  []*Card
}

func (ds deckSpec) build(t *testing.T) *Deck {
	t.Helper()
	leader := ds.Leader
	if leader == nil {
		leader = leaderCard("Captain", 5000, 5)
	}

	n := 0
	filler := func() *Card {
		c := fillers[n/MaxCopies]
		n++
		return c
	}

	life := make([]*Card, leader.Life)
	for i := range life {
		// life[i] is taken i-th from the top; the last one taken is revealed first.
		if j := leader.Life - 1 - i; j < len(ds.Life) {
			life[i] = ds.Life[j]
		} else {
			life[i] = filler()
		}
	}
	cards := append([]*Card(nil), life...)
	for i := 0; i < OpeningHandSize; i++ {
		if i < len(ds.Hand) {
			cards = append(cards, ds.Hand[i])
		} else {
			cards = append(cards, filler())
		}
	}
	cards = append(cards, ds.Draws...)
	for len(cards) < DeckSize {
		cards = append(cards, filler())
	}

	deck, err := NewDeck("test-"+leader.Name, leader.Name+" deck", leader, cards)
	require.NoError(t, err)
	return deck
}

// fixture is a game under direct test control.
type fixture struct {
	t      *testing.T
	gs     *GameState
	rules  *Rules
	events *log.MemoryLogger
}

func newFixture(t *testing.T, p0, p1 deckSpec, opts ...func(*GameConfig)) *fixture {
	t.Helper()
	cfg := GameConfig{
		ID:        "test-game",
		Decks:     [2]*Deck{p0.build(t), p1.build(t)},
		Seed:      1,
		NoShuffle: true,
	}
	for _, o := range opts {
		o(&cfg)
	}
	gs, err := NewGame(cfg)
	require.NoError(t, err)
	events := log.NewMemoryLogger()
	return &fixture{t: t, gs: gs, rules: NewRules(events, zaptest.NewLogger(t)), events: events}
}

func (f *fixture) apply(a Action) {
	f.t.Helper()
	require.NoError(f.t, f.rules.Apply(f.gs, a), "apply %s", a.Describe(f.gs))
}

func (f *fixture) pass() {
	f.t.Helper()
	f.apply(Action{Type: ActionPassPhase, Player: f.gs.Active})
}

// toMain passes until it is the given player's main phase.
func (f *fixture) toMain(player int) {
	f.t.Helper()
	for i := 0; i < 4 && !(f.gs.Phase == PhaseMain && f.gs.Active == player); i++ {
		f.pass()
	}
	require.Equal(f.t, PhaseMain, f.gs.Phase)
	require.Equal(f.t, player, f.gs.Active)
}

// card finds a player's card by name in any zone.
func (f *fixture) card(player int, name string) *CardInstance {
	f.t.Helper()
	var found *CardInstance
	f.gs.Players[player].each(func(ci *CardInstance) {
		if found == nil && ci.Card.Name == name {
			found = ci
		}
	})
	require.NotNil(f.t, found, "P%d has no %s", player+1, name)
	return found
}

// field puts a named card straight into the character area, without summoning sickness.
func (f *fixture) field(player int, name string) *CardInstance {
	f.t.Helper()
	ci := f.card(player, name)
	_, err := f.gs.MoveCard(player, ci.ID, ci.Zone, ZoneCharacter)
	require.NoError(f.t, err)
	return ci
}

// don sets the number of active DON!! tokens, taking them from the DON!! deck.
func (f *fixture) don(player, active int) {
	f.t.Helper()
	r := &f.gs.Players[player].Resources
	r.Active = active
	r.Deck = ResourceDeckSize - r.Total()
	require.GreaterOrEqual(f.t, r.Deck, 0)
}

func (f *fixture) attack(attacker, target *CardInstance) Action {
	return Action{Type: ActionAttack, Player: attacker.Owner, Card: attacker.ID, Target: target.ID}
}

func (f *fixture) snapshot() []byte {
	f.t.Helper()
	data, err := MarshalSnapshot(f.gs)
	require.NoError(f.t, err)
	return data
}

// runMatchToCompletion runs a match and returns the logger for inspection.
func runMatchToCompletion(t *testing.T, cfg MatchConfig, p0, p1 Controller) (*Match, *log.MemoryLogger) {
	t.Helper()
	logger := log.NewMemoryLogger()
	cfg.Logger = logger
	cfg.Zap = zaptest.NewLogger(t)
	cfg.Game.NoShuffle = true // deterministic tests
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 100 // reasonable default for tests
	}

	m, err := NewMatch(cfg, p0, p1)
	require.NoError(t, err)

	winner, err := m.Run(context.Background())
	if err != nil {
		t.Logf("Event log:\n%s", log.FormatAll(logger.Events()))
		t.Fatalf("Match error: %v", err)
	}
	t.Logf("Match result: winner=%d (%s)", winner, m.State.Result)
	return m, logger
}
