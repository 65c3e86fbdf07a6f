package game

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/log"
)

// Rules applies actions and phase advances to game states. A Rules value holds no
// game state, so one instance may serve any number of games, but each GameState
// must only be mutated by one goroutine at a time.
type Rules struct {
	Events   log.EventLogger // receives game events after an operation commits
	Log      *zap.Logger
	Triggers TriggerPolicy // decides revealed [Trigger] life cards; nil declines
}

// NewRules returns Rules writing events to events and diagnostics to logger.
// Either may be nil.
func NewRules(events log.EventLogger, logger *zap.Logger) *Rules {
	return &Rules{Events: events, Log: logger}
}

func (r *Rules) events() log.EventLogger {
	if r == nil || r.Events == nil {
		return log.Discard
	}
	return r.Events
}

func (r *Rules) logger() *zap.Logger {
	if r == nil || r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Rules) triggers() TriggerPolicy {
	if r == nil || r.Triggers == nil {
		return DeclineTriggers{}
	}
	return r.Triggers
}

// Apply validates and executes one action. It is all-or-nothing: a rejected action
// leaves gs untouched and returns a *Rejection; an internal fault restores gs to its
// state before the call and returns an error wrapping ErrInvariant.
func (r *Rules) Apply(gs *GameState, a Action) error {
	if rej := Validate(gs, a); rej != nil {
		return rej
	}
	return r.transact(gs, a.String(), func(x *executor) {
		x.apply(a)
	})
}

// Advance performs a single phase transition for the turn player.
func (r *Rules) Advance(gs *GameState) error {
	if gs.Over {
		return ErrGameOver
	}
	if gs.Battle != nil {
		return fmt.Errorf("cannot leave %s during a battle", gs.Phase)
	}
	return r.transact(gs, "advance", func(x *executor) {
		x.advance()
	})
}

// transact runs fn against gs, keeping a bookmark to restore on any fault.
func (r *Rules) transact(gs *GameState, op string, fn func(x *executor)) (err error) {
	bookmark := gs.Clone()
	x := &executor{gs: gs, triggers: r.triggers()}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInvariant, p)
		}
		if err == nil {
			err = gs.CheckInvariants()
		}
		if err != nil {
			r.abort(gs, bookmark, op, err)
			err = fmt.Errorf("%s failed and state restored: %w", op, err)
			return
		}
		events := r.events()
		for _, e := range x.events {
			events.Log(e)
		}
	}()

	fn(x)
	return x.err
}

// abort logs the faulty state with full context, then restores the bookmark.
func (r *Rules) abort(gs, bookmark *GameState, op string, cause error) {
	fields := []zap.Field{
		zap.String("game_id", gs.ID),
		zap.String("op", op),
		zap.Int("turn", gs.Turn),
		zap.String("phase", gs.Phase.String()),
		zap.Error(cause),
	}
	if data, err := faultySnapshot(gs); err == nil {
		fields = append(fields, zap.ByteString("snapshot", data), zap.String("checksum", ChecksumOf(data)))
	} else {
		fields = append(fields, zap.NamedError("snapshot_error", err))
	}
	if errors.Is(cause, ErrInvariant) {
		r.logger().Error("invariant violated, restoring last good state", fields...)
	} else {
		r.logger().Warn("operation failed, restoring last good state", fields...)
	}
	*gs = *bookmark
}

// faultySnapshot serializes a state that may be structurally broken.
func faultySnapshot(gs *GameState) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("snapshot of corrupt state: %v", p)
		}
	}()
	return MarshalSnapshot(gs)
}

// executor carries one operation's mutations. Events are buffered until the
// operation commits.
type executor struct {
	gs       *GameState
	triggers TriggerPolicy
	events   []log.GameEvent
	err      error
}

func (x *executor) log(e log.GameEvent) {
	x.events = append(x.events, e)
}

func (x *executor) fail(err error) {
	if x.err == nil {
		x.err = err
	}
}

func (x *executor) phase() string {
	return x.gs.Phase.String()
}

func (x *executor) apply(a Action) {
	switch a.Type {
	case ActionMulligan:
		x.mulligan(a.Player)
	case ActionPassPhase:
		x.passPhase()
	case ActionPlayCard:
		x.playCard(a.Player, a.Card)
	case ActionAttachResource:
		x.attach(a.Player, a.Target)
	case ActionAttack:
		x.declareAttack(a.Player, a.Card, a.Target)
	case ActionUseBlocker:
		x.useBlocker(a.Card)
	case ActionDeclineBlock:
		x.enterCounter()
	case ActionUseCounter:
		x.useCounter(a.Card)
	case ActionEndCounter:
		x.resolve()
	default:
		x.fail(fmt.Errorf("%w: no handler for %s", ErrInvariant, a.Type))
	}
}

func (x *executor) playCard(player, id int) {
	gs := x.gs
	p := gs.Players[player]
	ci := p.InHand(id)
	if ci == nil {
		x.fail(fmt.Errorf("%w: #%d vanished from hand", ErrInvariant, id))
		return
	}
	if err := p.Resources.Spend(ci.Card.Cost); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
		return
	}

	dest := ZoneTrash
	switch ci.Card.Type {
	case CardTypeCharacter:
		dest = ZoneCharacter
	case CardTypeStage:
		dest = ZoneStage
	}
	if _, err := gs.MoveCard(player, id, ZoneHand, dest); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
		return
	}
	if dest == ZoneCharacter {
		if p.PlayedThisTurn == nil {
			p.PlayedThisTurn = make(map[int]bool)
		}
		p.PlayedThisTurn[id] = true
	}
	x.log(log.NewPlayCardEvent(gs.Turn, x.phase(), player, ci.Card.Name, ci.Card.Cost))

	// Effects beyond the tag set are not executed; they are surfaced for observers.
	for _, ab := range ci.Card.Abilities() {
		if ab.Kind == AbilityOnPlay || (ci.Card.Type == CardTypeEvent && ab.Kind == AbilityMain) {
			x.log(log.NewAbilityDetectedEvent(gs.Turn, x.phase(), player, ci.Card.Name, ab.String()+" "+ab.Effect))
		}
	}
}

func (x *executor) attach(player, target int) {
	gs := x.gs
	p := gs.Players[player]
	ci := p.InPlay(target)
	if ci == nil {
		x.fail(fmt.Errorf("%w: attach target #%d not in play", ErrInvariant, target))
		return
	}
	if err := p.Resources.Attach(target); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
		return
	}
	x.log(log.NewAttachResourceEvent(gs.Turn, x.phase(), player, ci.Card.Name, p.Resources.AttachedTo(target)))
}

// leavePlay moves a leader-area or character card to the trash, returning its
// attached DON!! to the owner's pool as rested tokens.
func (x *executor) leavePlay(ci *CardInstance) {
	p := x.gs.Players[ci.Owner]
	p.Resources.Release(ci.ID)
	if _, err := x.gs.MoveCard(ci.Owner, ci.ID, ci.Zone, ZoneTrash); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
	}
}

// checkWin evaluates the win condition and logs the result once.
func (x *executor) checkWin(reason string) {
	gs := x.gs
	if gs.Over {
		return
	}
	if gs.CheckWinCondition() && gs.Winner >= 0 {
		x.log(log.NewWinEvent(gs.Turn, x.phase(), gs.Winner, reason))
	}
}
