package game

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/log"
)

// Controller is implemented by anything that plays one side of a match: humans
// over a UI, the search AI, scripted test players.
type Controller interface {
	// ChooseAction presents the legal actions and waits for the player to pick one.
	ChooseAction(ctx context.Context, state *GameState, actions []Action) (Action, error)

	// ChooseYesNo asks a yes/no question (mulligan, optional trigger).
	ChooseYesNo(ctx context.Context, state *GameState, prompt string) (bool, error)

	// Notify sends a game event notification (no response needed).
	Notify(ctx context.Context, event log.GameEvent) error
}

// MatchConfig holds configuration for running a match.
type MatchConfig struct {
	Game     GameConfig
	Logger   log.EventLogger
	Zap      *zap.Logger
	MaxTurns int // stop after this many turns (0 = 200)
}

// Match drives one game between two controllers from setup to a result.
type Match struct {
	State       *GameState
	Controllers [2]Controller
	Logger      log.EventLogger
	Rules       *Rules
	Replay      *Replay
	ctx         context.Context
	maxTurns    int
}

// NewMatch deals a new game for the two controllers.
func NewMatch(cfg MatchConfig, p0, p1 Controller) (*Match, error) {
	gs, err := NewGame(cfg.Game)
	if err != nil {
		return nil, err
	}
	return NewMatchFromState(gs, cfg, p0, p1)
}

// NewMatchFromState resumes a match from an existing state.
func NewMatchFromState(gs *GameState, cfg MatchConfig, p0, p1 Controller) (*Match, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 200 // safety limit
	}
	rp, err := NewReplay(gs)
	if err != nil {
		return nil, err
	}

	m := &Match{
		State:       gs,
		Controllers: [2]Controller{p0, p1},
		Logger:      logger,
		Replay:      rp,
		ctx:         context.Background(),
		maxTurns:    maxTurns,
	}
	m.Rules = &Rules{Events: notifier{m}, Log: cfg.Zap, Triggers: m}
	return m, nil
}

// Run plays the match to completion. Returns the winner (0, 1, or -1 for a draw).
func (m *Match) Run(ctx context.Context) (int, error) {
	m.ctx = ctx
	gs := m.State

	if gs.Phase == PhaseSetup {
		if err := m.offerMulligans(); err != nil {
			return -1, err
		}
	}

	for !gs.Over {
		if gs.Turn > m.maxTurns {
			gs.Over = true
			gs.Winner = -1
			gs.Result = fmt.Sprintf("Turn limit reached (%d turns)", m.maxTurns)
			m.Rules.Events.Log(log.NewTurnLimitEvent(gs.Turn, gs.Phase.String(), m.maxTurns))
			break
		}
		if err := m.step(); err != nil {
			return gs.Winner, err
		}
		if err := ctx.Err(); err != nil {
			return -1, err
		}
	}
	return gs.Winner, nil
}

func (m *Match) offerMulligans() error {
	gs := m.State
	for _, p := range []int{gs.Active, gs.Opponent(gs.Active)} {
		if gs.Players[p].Mulliganed {
			continue
		}
		yes, err := m.Controllers[p].ChooseYesNo(m.ctx, gs, "Redraw your opening hand?")
		if err != nil {
			return err
		}
		if yes {
			if err := m.apply(Action{Type: ActionMulligan, Player: p}); err != nil {
				return err
			}
		}
	}
	return nil
}

// step asks whoever must decide next for one action and applies it.
func (m *Match) step() error {
	gs := m.State
	decider := gs.Decider()
	actions := LegalActions(gs, decider)
	if len(actions) == 0 {
		return fmt.Errorf("%w: P%d has no legal action in %s", ErrInvariant, decider+1, gs.Phase)
	}
	chosen, err := m.Controllers[decider].ChooseAction(m.ctx, gs, actions)
	if err != nil {
		return err
	}
	return m.apply(chosen)
}

func (m *Match) apply(a Action) error {
	if err := m.Rules.Apply(m.State, a); err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			return fmt.Errorf("P%d chose an illegal action: %w", a.Player+1, err)
		}
		return err
	}
	m.Replay.Record(a)
	return nil
}

// ActivateTrigger asks the damaged player whether to use a revealed [Trigger].
func (m *Match) ActivateTrigger(gs *GameState, player int, card *CardInstance) bool {
	effect, _ := card.Card.Abilities().Get(AbilityTrigger)
	prompt := fmt.Sprintf("Activate [Trigger] of %s? %s", card.Card.Name, effect.Effect)
	yes, err := m.Controllers[player].ChooseYesNo(m.ctx, gs, prompt)
	if err != nil {
		yes = false
	}
	m.Replay.RecordTrigger(yes)
	return yes
}

// notifier forwards committed events to the match log and both controllers.
type notifier struct{ m *Match }

func (n notifier) Log(event log.GameEvent) {
	n.m.Logger.Log(event)
	// Notify controllers (ignore errors for notifications)
	for i := 0; i < 2; i++ {
		_ = n.m.Controllers[i].Notify(n.m.ctx, event)
	}
}

func (n notifier) Events() []log.GameEvent {
	return n.m.Logger.Events()
}
