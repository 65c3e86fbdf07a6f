// Package ai implements computer players: a position evaluator, a depth-limited
// minimax search with alpha-beta pruning, and controllers that plug them into a
// game.Match.
package ai

import (
	"github.com/peterkuimelis/grandline/internal/game"
)

// TerminalScore is the magnitude of a decided game. It dominates any positional
// score the weights below can produce.
const TerminalScore = 1e6

// Weights are the coefficients of the positional score. Each term is the
// difference between the perspective player and the opponent.
type Weights struct {
	LifeCard     float64 // per life card
	LowLife      float64 // bonus/penalty when a side is at 1 life or less
	Character    float64 // per character in play
	Power        float64 // per point of base character power in play
	Resources    float64 // per DON!! token in the pool
	HandCard     float64
	DeckCard     float64
	LeaderRested float64 // applied when a leader is rested (negative)
}

// DefaultWeights favor life above everything else, then board presence.
var DefaultWeights = Weights{
	LifeCard:     1000,
	LowLife:      500,
	Character:    100,
	Power:        0.01,
	Resources:    50,
	HandCard:     30,
	DeckCard:     5,
	LeaderRested: -200,
}

// Evaluate scores gs from perspective's point of view with DefaultWeights.
func Evaluate(gs *game.GameState, perspective int) float64 {
	return DefaultWeights.Evaluate(gs, perspective)
}

// Evaluate scores gs from perspective's point of view. Higher is better for
// perspective; a won game is +TerminalScore, a lost one -TerminalScore, a draw 0.
func (w Weights) Evaluate(gs *game.GameState, perspective int) float64 {
	if gs.Over {
		switch gs.Winner {
		case perspective:
			return TerminalScore
		case gs.Opponent(perspective):
			return -TerminalScore
		}
		return 0
	}
	me := gs.Players[perspective]
	opp := gs.Players[gs.Opponent(perspective)]
	return w.side(me) - w.side(opp)
}

// side is one player's contribution to the score.
func (w Weights) side(p *game.Player) float64 {
	score := float64(len(p.Life)) * w.LifeCard
	if len(p.Life) <= 1 {
		score -= w.LowLife
	}

	power := 0
	for _, c := range p.Characters {
		power += c.Card.Power
	}
	score += float64(len(p.Characters)) * w.Character
	score += float64(power) * w.Power

	score += float64(p.Resources.Total()) * w.Resources
	score += float64(len(p.Hand)) * w.HandCard
	score += float64(len(p.Deck)) * w.DeckCard

	if p.Leader != nil && p.Leader.Rested {
		score += w.LeaderRested
	}
	return score
}
