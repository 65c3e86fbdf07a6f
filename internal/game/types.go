package game

import "fmt"

// --- Enums ---

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseRefresh
	PhaseDraw
	PhaseResource
	PhaseMain
	PhaseEnd
)

var phaseKeys = [...]string{"setup", "refresh", "draw", "resource", "main", "end"}

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "Setup Phase"
	case PhaseRefresh:
		return "Refresh Phase"
	case PhaseDraw:
		return "Draw Phase"
	case PhaseResource:
		return "DON!! Phase"
	case PhaseMain:
		return "Main Phase"
	case PhaseEnd:
		return "End Phase"
	default:
		return "None"
	}
}

// Next returns the phase that follows p within a turn. PhaseEnd wraps to PhaseRefresh.
func (p Phase) Next() Phase {
	switch p {
	case PhaseSetup, PhaseEnd:
		return PhaseRefresh
	default:
		return p + 1
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < PhaseSetup || p > PhaseEnd {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(phaseKeys[p]), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, k := range phaseKeys {
		if k == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// CombatStep is the sub-phase pointer of an in-progress battle.
type CombatStep int

const (
	CombatNone CombatStep = iota
	CombatDeclare
	CombatBlocker
	CombatCounter
	CombatResolve
	CombatDone
)

var combatStepKeys = [...]string{"none", "declare", "blocker", "counter", "resolve", "done"}

func (s CombatStep) String() string {
	switch s {
	case CombatDeclare:
		return "Declare Step"
	case CombatBlocker:
		return "Blocker Step"
	case CombatCounter:
		return "Counter Step"
	case CombatResolve:
		return "Resolve Step"
	case CombatDone:
		return "Done"
	default:
		return ""
	}
}

func (s CombatStep) MarshalText() ([]byte, error) {
	if s < CombatNone || s > CombatDone {
		return nil, fmt.Errorf("invalid combat step %d", int(s))
	}
	return []byte(combatStepKeys[s]), nil
}

func (s *CombatStep) UnmarshalText(text []byte) error {
	for i, k := range combatStepKeys {
		if k == string(text) {
			*s = CombatStep(i)
			return nil
		}
	}
	return fmt.Errorf("unknown combat step %q", text)
}

type CardType int

const (
	CardTypeLeader CardType = iota
	CardTypeCharacter
	CardTypeEvent
	CardTypeStage
)

func (ct CardType) String() string {
	switch ct {
	case CardTypeLeader:
		return "Leader"
	case CardTypeCharacter:
		return "Character"
	case CardTypeEvent:
		return "Event"
	case CardTypeStage:
		return "Stage"
	default:
		return "Unknown"
	}
}

// ParseCardType accepts the display names used in catalog files, case-insensitively.
func ParseCardType(s string) (CardType, error) {
	switch s {
	case "Leader", "leader", "LEADER":
		return CardTypeLeader, nil
	case "Character", "character", "CHARACTER":
		return CardTypeCharacter, nil
	case "Event", "event", "EVENT":
		return CardTypeEvent, nil
	case "Stage", "stage", "STAGE":
		return CardTypeStage, nil
	}
	return 0, fmt.Errorf("unknown card type %q", s)
}

func (ct CardType) MarshalText() ([]byte, error) {
	if ct < CardTypeLeader || ct > CardTypeStage {
		return nil, fmt.Errorf("invalid card type %d", int(ct))
	}
	return []byte(ct.String()), nil
}

func (ct *CardType) UnmarshalText(text []byte) error {
	v, err := ParseCardType(string(text))
	if err != nil {
		return err
	}
	*ct = v
	return nil
}

// --- Zone types ---

type ZoneType int

const (
	ZoneNone ZoneType = iota
	ZoneLeader
	ZoneHand
	ZoneCharacter
	ZoneStage
	ZoneDeck
	ZoneTrash
	ZoneLife
)

func (z ZoneType) String() string {
	switch z {
	case ZoneLeader:
		return "Leader Area"
	case ZoneHand:
		return "Hand"
	case ZoneCharacter:
		return "Character Area"
	case ZoneStage:
		return "Stage Area"
	case ZoneDeck:
		return "Deck"
	case ZoneTrash:
		return "Trash"
	case ZoneLife:
		return "Life"
	default:
		return "Unknown"
	}
}

// --- CardInstance (runtime card in a zone) ---

// CardInstance is one physical copy of a Card inside a game. The Card pointer is
// shared between copies of a state; it is never mutated after construction.
type CardInstance struct {
	Card   *Card
	ID     int // unique instance ID within a game
	Owner  int // player index (0 or 1)
	Zone   ZoneType
	Rested bool
}

func (ci *CardInstance) String() string {
	if ci == nil {
		return "(empty)"
	}
	return fmt.Sprintf("%s#%d", ci.Card.Name, ci.ID)
}

// DisplayString returns a human-readable description for the event log.
func (ci *CardInstance) DisplayString() string {
	if ci == nil {
		return "(empty)"
	}
	switch ci.Card.Type {
	case CardTypeLeader, CardTypeCharacter:
		state := "active"
		if ci.Rested {
			state = "rested"
		}
		return fmt.Sprintf("%s (%d power, %s)", ci.Card.Name, ci.Card.Power, state)
	}
	return ci.Card.Name
}

func (ci *CardInstance) clone() *CardInstance {
	if ci == nil {
		return nil
	}
	cp := *ci
	return &cp
}
