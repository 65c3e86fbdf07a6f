package game

import "fmt"

// RejectReason classifies why an action failed validation.
type RejectReason int

const (
	RejectWrongPhase RejectReason = iota
	RejectInsufficientResources
	RejectIllegalTarget
	RejectSummoningSickness
	RejectCapacityExceeded
	RejectWrongPlayer
	RejectGameOver
)

var rejectKeys = [...]string{
	"wrong_phase", "insufficient_resources", "illegal_target", "summoning_sickness",
	"capacity_exceeded", "wrong_player", "game_over",
}

func (r RejectReason) String() string {
	if r < RejectWrongPhase || r > RejectGameOver {
		return "unknown"
	}
	return rejectKeys[r]
}

func (r RejectReason) MarshalText() ([]byte, error) {
	if r < RejectWrongPhase || r > RejectGameOver {
		return nil, fmt.Errorf("invalid reject reason %d", int(r))
	}
	return []byte(rejectKeys[r]), nil
}

// Rejection is returned for an action that is not legal in the current state.
// It is recoverable: the caller may retry with another action.
type Rejection struct {
	Reason RejectReason `json:"reason"`
	Action Action       `json:"action"`
	Detail string       `json:"detail"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s: %s", r.Action, r.Reason, r.Detail)
}

func reject(a Action, reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Action: a, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks a against gs without modifying it. It returns nil if the action
// may be applied.
func Validate(gs *GameState, a Action) *Rejection {
	if gs.Over {
		return reject(a, RejectGameOver, "%s", gs.Result)
	}
	if a.Player != 0 && a.Player != 1 {
		return reject(a, RejectWrongPlayer, "no player %d", a.Player)
	}
	if rej := validateShape(a); rej != nil {
		return rej
	}
	if gs.Battle != nil {
		return validateBattle(gs, a)
	}

	p := gs.Players[a.Player]
	switch a.Type {
	case ActionMulligan:
		if gs.Phase != PhaseSetup {
			return reject(a, RejectWrongPhase, "mulligan only during setup, now %s", gs.Phase)
		}
		if p.Mulliganed {
			return reject(a, RejectWrongPhase, "opening hand already redrawn")
		}
		return nil

	case ActionPassPhase:
		if a.Player != gs.Active {
			return reject(a, RejectWrongPlayer, "P%d's turn", gs.Active+1)
		}
		return nil

	case ActionPlayCard, ActionAttack, ActionAttachResource:
		if gs.Phase != PhaseMain {
			return reject(a, RejectWrongPhase, "%s only in Main Phase, now %s", a.Type, gs.Phase)
		}
		if a.Player != gs.Active {
			return reject(a, RejectWrongPlayer, "P%d's turn", gs.Active+1)
		}
	case ActionUseBlocker, ActionDeclineBlock, ActionUseCounter, ActionEndCounter:
		return reject(a, RejectWrongPhase, "no battle in progress")
	default:
		return reject(a, RejectIllegalTarget, "unknown action type %d", int(a.Type))
	}

	switch a.Type {
	case ActionPlayCard:
		return validatePlay(gs, p, a)
	case ActionAttack:
		return validateAttack(gs, p, a)
	default:
		if p.Resources.Active < 1 {
			return reject(a, RejectInsufficientResources, "no active DON!!")
		}
		if p.InPlay(a.Target) == nil {
			return reject(a, RejectIllegalTarget, "#%d is not your leader or character", a.Target)
		}
		return nil
	}
}

// validateShape rejects identifiers the action kind does not use, so each legal
// move has exactly one encoding.
func validateShape(a Action) *Rejection {
	var card, target bool
	switch a.Type {
	case ActionPlayCard, ActionUseBlocker, ActionUseCounter:
		card = true
	case ActionAttack:
		card, target = true, true
	case ActionAttachResource:
		target = true
	}
	if (a.Card != 0) != card || (a.Target != 0) != target {
		return reject(a, RejectIllegalTarget, "%s takes card=%t target=%t", a.Type, card, target)
	}
	return nil
}

func validatePlay(gs *GameState, p *Player, a Action) *Rejection {
	ci := p.InHand(a.Card)
	if ci == nil {
		return reject(a, RejectIllegalTarget, "#%d not in hand", a.Card)
	}
	card := ci.Card
	switch card.Type {
	case CardTypeLeader:
		return reject(a, RejectIllegalTarget, "%s is a leader", card.Name)
	case CardTypeEvent:
		if card.CounterOnly() {
			return reject(a, RejectWrongPhase, "%s can only be used as a counter", card.Name)
		}
	case CardTypeCharacter:
		if len(p.Characters) >= CharacterAreaSize {
			return reject(a, RejectCapacityExceeded, "character area full (%d)", CharacterAreaSize)
		}
	case CardTypeStage:
		if p.Stage != nil {
			return reject(a, RejectCapacityExceeded, "stage area holds %s", p.Stage.Card.Name)
		}
	}
	if card.Cost > p.Resources.Active {
		return reject(a, RejectInsufficientResources, "%s costs %d, %d DON!! active", card.Name, card.Cost, p.Resources.Active)
	}
	return nil
}

func validateAttack(gs *GameState, p *Player, a Action) *Rejection {
	attacker := p.InPlay(a.Card)
	if attacker == nil {
		return reject(a, RejectIllegalTarget, "#%d is not your leader or character", a.Card)
	}
	if p.FirstTurn {
		return reject(a, RejectSummoningSickness, "no attacks on your first turn")
	}
	if attacker.Zone == ZoneCharacter && p.PlayedThisTurn[attacker.ID] && !attacker.Card.HasRush() {
		return reject(a, RejectSummoningSickness, "%s entered play this turn", attacker.Card.Name)
	}
	if attacker.Rested {
		return reject(a, RejectIllegalTarget, "%s is rested", attacker.Card.Name)
	}

	opp := gs.Players[gs.Opponent(a.Player)]
	target := opp.InPlay(a.Target)
	if target == nil {
		return reject(a, RejectIllegalTarget, "#%d is not an opposing leader or character", a.Target)
	}
	if target.Zone == ZoneCharacter && !target.Rested {
		return reject(a, RejectIllegalTarget, "%s is active; only rested characters can be attacked", target.Card.Name)
	}
	return nil
}

func validateBattle(gs *GameState, a Action) *Rejection {
	b := gs.Battle
	if a.Player != b.Defender {
		return reject(a, RejectWrongPlayer, "P%d is defending", b.Defender+1)
	}
	switch a.Type {
	case ActionUseBlocker, ActionDeclineBlock:
		if b.Step != CombatBlocker {
			return reject(a, RejectWrongPhase, "%s not allowed in %s", a.Type, b.Step)
		}
	case ActionUseCounter, ActionEndCounter:
		if b.Step != CombatCounter {
			return reject(a, RejectWrongPhase, "%s not allowed in %s", a.Type, b.Step)
		}
	default:
		return reject(a, RejectWrongPhase, "battle in progress (%s)", b.Step)
	}
	if a.Type == ActionDeclineBlock || a.Type == ActionEndCounter {
		return nil
	}
	if !b.isCandidate(a.Card) {
		return reject(a, RejectIllegalTarget, "#%d cannot be used in %s", a.Card, b.Step)
	}
	if a.Type == ActionUseCounter {
		p := gs.Players[a.Player]
		if ci := p.InHand(a.Card); ci != nil && ci.Card.Type == CardTypeEvent && ci.Card.Cost > p.Resources.Active {
			return reject(a, RejectInsufficientResources, "%s costs %d, %d DON!! active", ci.Card.Name, ci.Card.Cost, p.Resources.Active)
		}
	}
	return nil
}

// LegalActions enumerates every action player may take in gs. The order is fixed
// for a given state: plays in hand order, attacks by attacker then target, DON!!
// attachments, then passing. During a battle only the defender has actions.
func LegalActions(gs *GameState, player int) []Action {
	if gs.Over || player < 0 || player > 1 {
		return nil
	}
	var candidates []Action

	if b := gs.Battle; b != nil {
		if player != b.Defender {
			return nil
		}
		switch b.Step {
		case CombatBlocker:
			for _, id := range b.Candidates {
				candidates = append(candidates, Action{Type: ActionUseBlocker, Player: player, Card: id})
			}
			candidates = append(candidates, Action{Type: ActionDeclineBlock, Player: player})
		case CombatCounter:
			for _, id := range b.Candidates {
				candidates = append(candidates, Action{Type: ActionUseCounter, Player: player, Card: id})
			}
			candidates = append(candidates, Action{Type: ActionEndCounter, Player: player})
		}
		return filterLegal(gs, candidates)
	}

	p := gs.Players[player]
	switch gs.Phase {
	case PhaseSetup:
		candidates = append(candidates, Action{Type: ActionMulligan, Player: player})
	case PhaseMain:
		for _, ci := range p.Hand {
			candidates = append(candidates, Action{Type: ActionPlayCard, Player: player, Card: ci.ID})
		}
		opp := gs.Players[gs.Opponent(player)]
		for _, atk := range p.inPlay() {
			for _, tgt := range opp.inPlay() {
				candidates = append(candidates, Action{Type: ActionAttack, Player: player, Card: atk.ID, Target: tgt.ID})
			}
		}
		for _, ci := range p.inPlay() {
			candidates = append(candidates, Action{Type: ActionAttachResource, Player: player, Target: ci.ID})
		}
	}
	candidates = append(candidates, Action{Type: ActionPassPhase, Player: player})
	return filterLegal(gs, candidates)
}

func filterLegal(gs *GameState, candidates []Action) []Action {
	legal := candidates[:0]
	for _, a := range candidates {
		if Validate(gs, a) == nil {
			legal = append(legal, a)
		}
	}
	return legal
}

// inPlay returns the leader followed by the characters in area order.
func (p *Player) inPlay() []*CardInstance {
	out := make([]*CardInstance, 0, 1+len(p.Characters))
	if p.Leader != nil {
		out = append(out, p.Leader)
	}
	return append(out, p.Characters...)
}
