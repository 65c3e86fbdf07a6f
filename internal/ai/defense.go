package ai

import (
	"sort"

	"github.com/peterkuimelis/grandline/internal/game"
)

// DefensivePolicy answers battle decisions for a defender that is not being
// searched. It blocks attacks on its leader that would otherwise land, and spends
// counters only when they are enough to make the attack fail.
type DefensivePolicy struct{}

// ChooseBlocker prefers a blocker that survives the attack, then the cheapest one.
func (DefensivePolicy) ChooseBlocker(gs *game.GameState, candidates []int) (int, bool) {
	b := gs.Battle
	if b == nil || len(candidates) == 0 {
		return 0, false
	}
	target := gs.Find(b.Target)
	if target == nil || target.Zone != game.ZoneLeader {
		return 0, false
	}
	attack, defense := gs.BattlePower()
	if attack < defense {
		return 0, false
	}

	best, bestCost, survives := 0, 0, false
	for _, id := range candidates {
		ci := gs.Find(id)
		if ci == nil {
			continue
		}
		lives := gs.Power(ci)+b.ModifierTotal(game.SideDefender) > attack
		switch {
		case best == 0,
			lives && !survives,
			lives == survives && ci.Card.Cost < bestCost:
			best, bestCost, survives = id, ci.Card.Cost, lives
		}
	}
	return best, best != 0
}

// ChooseCounters picks the fewest counters, largest first, that push the
// defender's power above the attacker's. Event counters must be paid for from the
// active pool. If no affordable set is enough, nothing is used.
func (DefensivePolicy) ChooseCounters(gs *game.GameState, candidates []int) []int {
	b := gs.Battle
	if b == nil || len(candidates) == 0 {
		return nil
	}
	attack, defense := gs.BattlePower()
	gap := attack - defense
	if gap < 0 {
		return nil
	}

	type counter struct {
		id, bonus, cost int
	}
	var cs []counter
	for _, id := range candidates {
		ci := gs.Find(id)
		if ci == nil {
			continue
		}
		c := counter{id: id, bonus: ci.Card.CounterBonus()}
		if c.bonus < 0 {
			c.bonus = -c.bonus
		}
		if ci.Card.Type == game.CardTypeEvent {
			c.cost = ci.Card.Cost
		}
		cs = append(cs, c)
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].bonus != cs[j].bonus {
			return cs[i].bonus > cs[j].bonus
		}
		return cs[i].cost < cs[j].cost
	})

	budget := gs.Players[b.Defender].Resources.Active
	var picked []int
	total := 0
	for _, c := range cs {
		if c.cost > budget {
			continue
		}
		budget -= c.cost
		total += c.bonus
		picked = append(picked, c.id)
		if total > gap {
			return picked
		}
	}
	return nil
}
