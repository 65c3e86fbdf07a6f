package log

import (
	"fmt"
	"io"
	"strings"
)

// EventLogger is the interface for logging game events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
}

func (l *MemoryLogger) Events() []GameEvent {
	return l.events
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	if len(l.events) == 0 {
		return GameEvent{}
	}
	return l.events[len(l.events)-1]
}

// --- Discard: drops everything (used by simulation) ---

type discard struct{}

func (discard) Log(GameEvent)       {}
func (discard) Events() []GameEvent { return nil }

// Discard is an EventLogger that records nothing.
var Discard EventLogger = discard{}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	l.MemoryLogger.Log(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- Formatting ---

// playerName returns "P1" or "P2" for display.
func playerName(p int) string {
	return fmt.Sprintf("P%d", p+1)
}

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	phase := e.Phase
	// Pad phase to 14 chars for alignment
	for len(phase) < 14 {
		phase += " "
	}
	return fmt.Sprintf("T%-2d %s| %s", e.Turn, phase, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

func NewPhaseChangeEvent(turn int, phase string, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventPhaseChange,
		Details: fmt.Sprintf("Phase → %s", phase),
	}
}

func NewTurnEvent(turn int, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   "Refresh Phase",
		Player:  player,
		Type:    EventNewTurn,
		Details: fmt.Sprintf("=== Turn %d (%s) ===", turn, playerName(player)),
	}
}

func NewShuffleEvent(turn int, phase string, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventShuffle,
		Details: fmt.Sprintf("%s shuffles their deck", playerName(player)),
	}
}

func NewMulliganEvent(turn int, phase string, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventMulligan,
		Details: fmt.Sprintf("%s redraws their opening hand", playerName(player)),
	}
}

func NewDrawEvent(turn int, phase string, player int, cardName string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDraw,
		Card:    cardName,
		Details: fmt.Sprintf("%s draws %s", playerName(player), cardName),
	}
}

func NewDeckOutEvent(turn int, phase string, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDeckOut,
		Details: fmt.Sprintf("%s cannot draw: deck is empty", playerName(player)),
	}
}

func NewRefreshEvent(turn int, phase string, player int, detached int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventRefresh,
		Details: fmt.Sprintf("%s refreshes (%d DON!! returned)", playerName(player), detached),
	}
}

func NewResourceGainEvent(turn int, phase string, player int, gained, total int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventResourceGain,
		Details: fmt.Sprintf("%s adds %d DON!! (%d/10)", playerName(player), gained, total),
	}
}

func NewPlayCardEvent(turn int, phase string, player int, cardName string, cost int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventPlayCard,
		Card:    cardName,
		Details: fmt.Sprintf("%s plays %s (cost %d)", playerName(player), cardName, cost),
	}
}

func NewAbilityDetectedEvent(turn int, phase string, player int, cardName string, ability string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventAbilityDetected,
		Card:    cardName,
		Details: fmt.Sprintf("%s: %s", cardName, ability),
	}
}

func NewAttachResourceEvent(turn int, phase string, player int, cardName string, attached int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventAttachResource,
		Card:    cardName,
		Details: fmt.Sprintf("%s attaches DON!! to %s (%d attached)", playerName(player), cardName, attached),
	}
}

func NewAttackDeclareEvent(turn int, phase string, player int, attacker string, defender string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventAttackDeclare,
		Card:    attacker,
		Details: fmt.Sprintf("%s attacks %s", attacker, defender),
	}
}

func NewBlockEvent(turn int, phase string, player int, blocker string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventBlock,
		Card:    blocker,
		Details: fmt.Sprintf("%s blocks with %s", playerName(player), blocker),
	}
}

func NewCounterEvent(turn int, phase string, player int, cardName string, modifier int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventCounter,
		Card:    cardName,
		Details: fmt.Sprintf("%s counters with %s (%+d)", playerName(player), cardName, modifier),
	}
}

func NewBattleResolveEvent(turn int, phase string, player int, attackPower, defendPower int, success bool) GameEvent {
	outcome := "fails"
	if success {
		outcome = "succeeds"
	}
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventBattleResolve,
		Details: fmt.Sprintf("Attack %s: %d vs %d", outcome, attackPower, defendPower),
	}
}

func NewDestroyEvent(turn int, phase string, player int, cardName string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDestroy,
		Card:    cardName,
		Details: fmt.Sprintf("%s's %s is K.O.'d", playerName(player), cardName),
	}
}

func NewLifeDamageEvent(turn int, phase string, player int, cardName string, remaining int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventLifeDamage,
		Card:    cardName,
		Details: fmt.Sprintf("%s takes 1 damage, %s added to hand (%d life left)", playerName(player), cardName, remaining),
	}
}

func NewTriggerRevealedEvent(turn int, phase string, player int, cardName string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventTriggerRevealed,
		Card:    cardName,
		Details: fmt.Sprintf("%s reveals [Trigger] card %s", playerName(player), cardName),
	}
}

func NewTriggerActivatedEvent(turn int, phase string, player int, cardName string, effect string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventTriggerActivated,
		Card:    cardName,
		Details: fmt.Sprintf("%s activates %s: %s", playerName(player), cardName, effect),
	}
}

func NewDefeatEvent(turn int, phase string, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDefeat,
		Details: fmt.Sprintf("%s's leader is defeated", playerName(player)),
	}
}

func NewWinEvent(turn int, phase string, winner int, reason string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  winner,
		Type:    EventWin,
		Details: fmt.Sprintf("%s wins (%s)", playerName(winner), reason),
	}
}

func NewTurnLimitEvent(turn int, phase string, limit int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  -1,
		Type:    EventTurnLimit,
		Details: fmt.Sprintf("Turn limit reached (%d turns)", limit),
	}
}
