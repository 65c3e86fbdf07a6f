package log

// EventType enumerates all observable game events.
type EventType int

const (
	EventPhaseChange EventType = iota
	EventNewTurn
	EventShuffle
	EventMulligan
	EventDraw
	EventDeckOut
	EventRefresh
	EventResourceGain
	EventPlayCard
	EventAbilityDetected
	EventAttachResource
	EventAttackDeclare
	EventBlock
	EventCounter
	EventBattleResolve
	EventDestroy
	EventLifeDamage
	EventTriggerRevealed
	EventTriggerActivated
	EventDefeat
	EventWin
	EventTurnLimit
)

func (e EventType) String() string {
	switch e {
	case EventPhaseChange:
		return "PhaseChange"
	case EventNewTurn:
		return "NewTurn"
	case EventShuffle:
		return "Shuffle"
	case EventMulligan:
		return "Mulligan"
	case EventDraw:
		return "Draw"
	case EventDeckOut:
		return "DeckOut"
	case EventRefresh:
		return "Refresh"
	case EventResourceGain:
		return "ResourceGain"
	case EventPlayCard:
		return "PlayCard"
	case EventAbilityDetected:
		return "AbilityDetected"
	case EventAttachResource:
		return "AttachResource"
	case EventAttackDeclare:
		return "AttackDeclare"
	case EventBlock:
		return "Block"
	case EventCounter:
		return "Counter"
	case EventBattleResolve:
		return "BattleResolve"
	case EventDestroy:
		return "Destroy"
	case EventLifeDamage:
		return "LifeDamage"
	case EventTriggerRevealed:
		return "TriggerRevealed"
	case EventTriggerActivated:
		return "TriggerActivated"
	case EventDefeat:
		return "Defeat"
	case EventWin:
		return "Win"
	case EventTurnLimit:
		return "TurnLimit"
	default:
		return "Unknown"
	}
}

// GameEvent represents a single observable event in a game.
type GameEvent struct {
	Seq     int       `json:"seq"`     // monotonic sequence number
	Turn    int       `json:"turn"`    // which turn (1-based, 0 during setup)
	Phase   string    `json:"phase"`   // current phase name (e.g. "Main Phase")
	Player  int       `json:"player"`  // acting player (0 or 1)
	Type    EventType `json:"type"`    // event type
	Card    string    `json:"card"`    // card name (if applicable)
	Details string    `json:"details"` // human-readable detail string
}
