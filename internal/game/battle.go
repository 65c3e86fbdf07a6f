package game

import (
	"fmt"

	"github.com/peterkuimelis/grandline/internal/log"
)

// BattleSide names which combatant a power modifier applies to.
type BattleSide int

const (
	SideAttacker BattleSide = iota
	SideDefender
)

func (s BattleSide) String() string {
	if s == SideAttacker {
		return "attacker"
	}
	return "defender"
}

func (s BattleSide) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BattleSide) UnmarshalText(text []byte) error {
	switch string(text) {
	case "attacker":
		*s = SideAttacker
	case "defender":
		*s = SideDefender
	default:
		return fmt.Errorf("unknown battle side %q", text)
	}
	return nil
}

// Modifier is one recorded power contribution made during a battle.
type Modifier struct {
	Source int        `json:"source"` // card instance that produced it
	Side   BattleSide `json:"side"`
	Amount int        `json:"amount"`
}

// Battle is the in-progress attack. It exists only while the defender still has
// blocker or counter decisions to make; resolution clears it.
type Battle struct {
	Step           CombatStep `json:"step"`
	Attacker       int        `json:"attacker"`
	Defender       int        `json:"defender"` // defending player
	Target         int        `json:"target"`
	OriginalTarget int        `json:"original_target"`
	Blocker        int        `json:"blocker,omitempty"`
	Modifiers      []Modifier `json:"modifiers,omitempty"`
	Candidates     []int      `json:"candidates,omitempty"` // legal blockers or counters for Step
}

func (b *Battle) clone() *Battle {
	cp := *b
	cp.Modifiers = append([]Modifier(nil), b.Modifiers...)
	cp.Candidates = append([]int(nil), b.Candidates...)
	return &cp
}

func (b *Battle) isCandidate(id int) bool {
	for _, c := range b.Candidates {
		if c == id {
			return true
		}
	}
	return false
}

// ModifierTotal sums the recorded modifiers for one side.
func (b *Battle) ModifierTotal(side BattleSide) int {
	total := 0
	for _, m := range b.Modifiers {
		if m.Side == side {
			total += m.Amount
		}
	}
	return total
}

// BattlePower returns the current attacker and defender power, including attached
// DON!! for the turn player and every modifier recorded so far. Neither goes below 0.
func (gs *GameState) BattlePower() (attack, defense int) {
	b := gs.Battle
	if b == nil {
		return 0, 0
	}
	if atk := gs.Players[gs.Active].InPlay(b.Attacker); atk != nil {
		attack = gs.Power(atk) + b.ModifierTotal(SideAttacker)
	}
	if def := gs.Players[b.Defender].InPlay(b.Target); def != nil {
		defense = gs.Power(def) + b.ModifierTotal(SideDefender)
	}
	return max(attack, 0), max(defense, 0)
}

// --- Decision policies ---

// TriggerPolicy decides whether a [Trigger] life card revealed by damage is used.
type TriggerPolicy interface {
	ActivateTrigger(gs *GameState, player int, card *CardInstance) bool
}

// DeclineTriggers never activates triggers.
type DeclineTriggers struct{}

func (DeclineTriggers) ActivateTrigger(*GameState, int, *CardInstance) bool { return false }

// DefensePolicy answers the defender's battle decisions when an attack is resolved
// in one call. Candidates are instance IDs in enumeration order.
type DefensePolicy interface {
	ChooseBlocker(gs *GameState, candidates []int) (int, bool)
	ChooseCounters(gs *GameState, candidates []int) []int
}

// NoDefense never blocks and never counters.
type NoDefense struct{}

func (NoDefense) ChooseBlocker(*GameState, []int) (int, bool) { return 0, false }
func (NoDefense) ChooseCounters(*GameState, []int) []int      { return nil }

// --- Step primitives ---

func (x *executor) declareAttack(player, attackerID, targetID int) {
	gs := x.gs
	attacker := gs.Players[player].InPlay(attackerID)
	defender := gs.Opponent(player)
	target := gs.Players[defender].InPlay(targetID)
	if attacker == nil || target == nil {
		x.fail(fmt.Errorf("%w: attack #%d → #%d not in play", ErrInvariant, attackerID, targetID))
		return
	}

	// Resting the attacker is final, whatever happens later in the battle.
	attacker.Rested = true
	gs.Battle = &Battle{
		Step:           CombatDeclare,
		Attacker:       attackerID,
		Defender:       defender,
		Target:         targetID,
		OriginalTarget: targetID,
	}
	x.log(log.NewAttackDeclareEvent(gs.Turn, x.phase(), player,
		fmt.Sprintf("%s (%d)", attacker.Card.Name, gs.Power(attacker)), target.Card.Name))
	x.enterBlocker()
}

func (x *executor) enterBlocker() {
	b := x.gs.Battle
	b.Step = CombatBlocker
	b.Candidates = blockerCandidates(x.gs)
	if len(b.Candidates) == 0 {
		x.enterCounter()
	}
}

func blockerCandidates(gs *GameState) []int {
	b := gs.Battle
	var ids []int
	for _, c := range gs.Players[b.Defender].Characters {
		if c.Card.HasBlocker() && !c.Rested && c.ID != b.Target {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (x *executor) useBlocker(id int) {
	gs := x.gs
	b := gs.Battle
	blocker := gs.Players[b.Defender].Character(id)
	if blocker == nil {
		x.fail(fmt.Errorf("%w: blocker #%d not in play", ErrInvariant, id))
		return
	}
	blocker.Rested = true
	b.Blocker = id
	b.Target = id
	x.log(log.NewBlockEvent(gs.Turn, x.phase(), b.Defender, blocker.Card.Name))
	x.enterCounter()
}

func (x *executor) enterCounter() {
	b := x.gs.Battle
	b.Step = CombatCounter
	b.Candidates = counterCandidates(x.gs)
	if len(b.Candidates) == 0 {
		x.resolve()
	}
}

// counterCandidates lists hand cards the defender can use now: counter events they
// can pay for and characters with a printed counter value.
func counterCandidates(gs *GameState) []int {
	p := gs.Players[gs.Battle.Defender]
	var ids []int
	for _, c := range p.Hand {
		if c.Card.CounterBonus() == 0 {
			continue
		}
		if c.Card.Type == CardTypeEvent && c.Card.Cost > p.Resources.Active {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids
}

func (x *executor) useCounter(id int) {
	gs := x.gs
	b := gs.Battle
	p := gs.Players[b.Defender]
	ci := p.InHand(id)
	if ci == nil {
		x.fail(fmt.Errorf("%w: counter #%d not in hand", ErrInvariant, id))
		return
	}
	if ci.Card.Type == CardTypeEvent {
		if err := p.Resources.Spend(ci.Card.Cost); err != nil {
			x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
			return
		}
	}
	if _, err := gs.MoveCard(b.Defender, id, ZoneHand, ZoneTrash); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
		return
	}

	bonus := ci.Card.CounterBonus()
	mod := Modifier{Source: id, Side: SideDefender, Amount: bonus}
	if bonus < 0 {
		mod.Side = SideAttacker
	}
	b.Modifiers = append(b.Modifiers, mod)
	x.log(log.NewCounterEvent(gs.Turn, x.phase(), b.Defender, ci.Card.Name, bonus))

	b.Candidates = counterCandidates(gs)
	if len(b.Candidates) == 0 {
		x.resolve()
	}
}

// resolve compares power and commits the outcome. Ties go to the attacker.
func (x *executor) resolve() {
	gs := x.gs
	b := gs.Battle
	b.Step = CombatResolve
	b.Candidates = nil

	attack, defense := gs.BattlePower()
	success := attack >= defense
	x.log(log.NewBattleResolveEvent(gs.Turn, x.phase(), gs.Active, attack, defense, success))

	if success {
		def := gs.Players[b.Defender]
		target := def.InPlay(b.Target)
		switch {
		case target == nil:
			x.fail(fmt.Errorf("%w: battle target #%d left play", ErrInvariant, b.Target))
		case target.Zone == ZoneCharacter:
			x.leavePlay(target)
			x.log(log.NewDestroyEvent(gs.Turn, x.phase(), b.Defender, target.Card.Name))
		default:
			x.damageLeader(b.Defender)
		}
	}

	b.Step = CombatDone
	gs.Battle = nil
	x.checkWin("leader defeated")
}

// damageLeader applies one point of leader damage. Reaching zero life is not a
// loss; taking damage at zero life is.
func (x *executor) damageLeader(player int) {
	gs := x.gs
	p := gs.Players[player]
	if len(p.Life) == 0 {
		p.Defeated = true
		x.log(log.NewDefeatEvent(gs.Turn, x.phase(), player))
		return
	}
	top := p.Life[len(p.Life)-1]
	if _, err := gs.MoveCard(player, top.ID, ZoneLife, ZoneHand); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
		return
	}
	x.log(log.NewLifeDamageEvent(gs.Turn, x.phase(), player, top.Card.Name, len(p.Life)))

	if !top.Card.HasTrigger() {
		return
	}
	x.log(log.NewTriggerRevealedEvent(gs.Turn, x.phase(), player, top.Card.Name))
	if !x.triggers.ActivateTrigger(gs, player, top) {
		return
	}
	if _, err := gs.MoveCard(player, top.ID, ZoneHand, ZoneTrash); err != nil {
		x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
		return
	}
	effect, _ := top.Card.Abilities().Get(AbilityTrigger)
	x.log(log.NewTriggerActivatedEvent(gs.Turn, x.phase(), player, top.Card.Name, effect.Effect))
}

// --- One-shot driver ---

// Execute applies a and then drives any battle it opened to completion, asking
// policy for the defender's decisions. It uses the same step primitives as
// interactive play, so an interactive sequence making the same choices ends in the
// same state. The whole call is atomic: on error gs is unchanged and no events are
// emitted.
func (r *Rules) Execute(gs *GameState, a Action, policy DefensePolicy) error {
	if policy == nil {
		policy = NoDefense{}
	}
	bookmark := gs.Clone()
	buf := log.NewMemoryLogger()
	inner := Rules{Events: buf, Log: r.logger(), Triggers: r.triggers()}

	err := inner.Apply(gs, a)
	if err == nil {
		err = inner.settle(gs, policy)
		if err != nil {
			*gs = *bookmark
		}
	}
	if err != nil {
		return err
	}
	events := r.events()
	for _, e := range buf.Events() {
		events.Log(e)
	}
	return nil
}

// settle answers pending battle steps with policy until the battle resolves.
func (r *Rules) settle(gs *GameState, policy DefensePolicy) error {
	for gs.Battle != nil && !gs.Over {
		b := gs.Battle
		switch b.Step {
		case CombatBlocker:
			a := Action{Type: ActionDeclineBlock, Player: b.Defender}
			if id, ok := policy.ChooseBlocker(gs, append([]int(nil), b.Candidates...)); ok {
				a = Action{Type: ActionUseBlocker, Player: b.Defender, Card: id}
			}
			if err := r.Apply(gs, a); err != nil {
				return err
			}
		case CombatCounter:
			for _, id := range policy.ChooseCounters(gs, append([]int(nil), b.Candidates...)) {
				if gs.Battle == nil || gs.Battle.Step != CombatCounter {
					break
				}
				a := Action{Type: ActionUseCounter, Player: b.Defender, Card: id}
				if Validate(gs, a) != nil {
					continue
				}
				if err := r.Apply(gs, a); err != nil {
					return err
				}
			}
			if gs.Battle != nil && gs.Battle.Step == CombatCounter {
				if err := r.Apply(gs, Action{Type: ActionEndCounter, Player: b.Defender}); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: battle waiting in %s", ErrInvariant, b.Step)
		}
	}
	return nil
}
