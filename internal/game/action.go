package game

import "fmt"

// ActionType identifies the kind of an Action.
type ActionType int

const (
	ActionPlayCard ActionType = iota
	ActionAttack
	ActionAttachResource
	ActionUseBlocker
	ActionDeclineBlock
	ActionUseCounter
	ActionEndCounter
	ActionPassPhase
	ActionMulligan
)

var actionTypeKeys = [...]string{
	"play_card", "attack", "attach_resource", "use_blocker", "decline_block",
	"use_counter", "end_counter", "pass_phase", "mulligan",
}

func (t ActionType) String() string {
	switch t {
	case ActionPlayCard:
		return "Play Card"
	case ActionAttack:
		return "Attack"
	case ActionAttachResource:
		return "Attach DON!!"
	case ActionUseBlocker:
		return "Block"
	case ActionDeclineBlock:
		return "No Block"
	case ActionUseCounter:
		return "Counter"
	case ActionEndCounter:
		return "End Counter Step"
	case ActionPassPhase:
		return "Pass Phase"
	case ActionMulligan:
		return "Mulligan"
	default:
		return "Unknown"
	}
}

func (t ActionType) MarshalText() ([]byte, error) {
	if t < ActionPlayCard || t > ActionMulligan {
		return nil, fmt.Errorf("invalid action type %d", int(t))
	}
	return []byte(actionTypeKeys[t]), nil
}

func (t *ActionType) UnmarshalText(text []byte) error {
	v, err := ParseActionType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseActionType maps a wire key such as "attack" to its ActionType.
func ParseActionType(s string) (ActionType, error) {
	for i, k := range actionTypeKeys {
		if k == s {
			return ActionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action type %q", s)
}

// Action is a move described purely by identifiers, so it can be replayed against
// any copy of a state. Card is the acting card's instance ID (the card played,
// the attacker, the blocker, the counter); Target is the attack or attach target.
type Action struct {
	Type   ActionType `json:"type"`
	Player int        `json:"player"`
	Card   int        `json:"card,omitempty"`
	Target int        `json:"target,omitempty"`
}

func (a Action) String() string {
	s := fmt.Sprintf("P%d %s", a.Player+1, a.Type)
	if a.Card != 0 {
		s += fmt.Sprintf(" #%d", a.Card)
	}
	if a.Target != 0 {
		s += fmt.Sprintf(" → #%d", a.Target)
	}
	return s
}

// Describe renders the action with card names looked up in gs.
func (a Action) Describe(gs *GameState) string {
	name := func(id int) string {
		if ci := gs.Find(id); ci != nil {
			return ci.Card.Name
		}
		return fmt.Sprintf("#%d", id)
	}
	switch a.Type {
	case ActionPlayCard:
		if ci := gs.Find(a.Card); ci != nil {
			return fmt.Sprintf("Play %s (cost %d)", ci.Card.Name, ci.Card.Cost)
		}
		return "Play " + name(a.Card)
	case ActionAttack:
		return fmt.Sprintf("Attack with %s → %s", name(a.Card), name(a.Target))
	case ActionAttachResource:
		return fmt.Sprintf("Attach DON!! to %s", name(a.Target))
	case ActionUseBlocker:
		return fmt.Sprintf("Block with %s", name(a.Card))
	case ActionUseCounter:
		if ci := gs.Find(a.Card); ci != nil {
			return fmt.Sprintf("Counter with %s (%+d)", ci.Card.Name, ci.Card.CounterBonus())
		}
		return "Counter with " + name(a.Card)
	default:
		return a.Type.String()
	}
}
