package ai

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/log"
)

// SearchController plays a match side by running the Searcher for every decision.
type SearchController struct {
	Player   int
	Searcher *Searcher
	Log      *zap.Logger

	// LastStats holds the statistics of the most recent search.
	LastStats Stats
}

func NewSearchController(player int, s *Searcher, logger *zap.Logger) *SearchController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchController{Player: player, Searcher: s, Log: logger}
}

func (c *SearchController) ChooseAction(ctx context.Context, gs *game.GameState, actions []game.Action) (game.Action, error) {
	if len(actions) == 1 {
		return actions[0], nil
	}
	// Mulligans are answered through ChooseYesNo.
	if gs.Phase == game.PhaseSetup {
		for _, a := range actions {
			if a.Type == game.ActionPassPhase {
				return a, nil
			}
		}
	}
	res, err := c.Searcher.Suggest(ctx, gs)
	if err != nil {
		return game.Action{}, fmt.Errorf("search: %w", err)
	}
	c.LastStats = res.Stats
	c.Log.Debug("search move",
		zap.Int("turn", gs.Turn),
		zap.String("action", res.Action.Describe(gs)),
		zap.Float64("score", res.Score),
		zap.Int64("nodes", res.Stats.Nodes))
	return res.Action, nil
}

// ChooseYesNo redraws an opening hand with nothing castable on the first two
// turns. Triggers are declined: activation only trashes the revealed card.
func (c *SearchController) ChooseYesNo(_ context.Context, gs *game.GameState, _ string) (bool, error) {
	if gs.Phase != game.PhaseSetup {
		return false, nil
	}
	for _, ci := range gs.Players[c.Player].Hand {
		if ci.Card.Type == game.CardTypeCharacter && ci.Card.Cost <= game.ResourcesPerRefresh*2 {
			return false, nil
		}
	}
	return true, nil
}

func (c *SearchController) Notify(context.Context, log.GameEvent) error { return nil }

// RandomController picks uniformly among legal actions. In the main phase it acts
// with ActionProbability, decaying with each action taken that turn, and passes
// otherwise. As a defender it blocks and counters half of the time.
type RandomController struct {
	ActionProbability float64

	rng      *rand.Rand
	turn     int
	acted    int
	battle   [2]int // turn and attacker of the battle being countered
	counters int    // counters still planned for that battle
}

func NewRandomController(seed int64) *RandomController {
	return &RandomController{ActionProbability: 0.7, rng: rand.New(rand.NewSource(seed))}
}

func (c *RandomController) ChooseAction(_ context.Context, gs *game.GameState, actions []game.Action) (game.Action, error) {
	if len(actions) == 0 {
		return game.Action{}, fmt.Errorf("%w: nothing to choose from", ErrNoMoves)
	}
	if gs.Turn != c.turn {
		c.turn, c.acted = gs.Turn, 0
	}
	if b := gs.Battle; b != nil {
		return c.defend(gs, b, actions), nil
	}

	var pass game.Action
	var options []game.Action
	for _, a := range actions {
		switch a.Type {
		case game.ActionPassPhase:
			pass = a
		case game.ActionMulligan:
		default:
			options = append(options, a)
		}
	}
	if len(options) == 0 || gs.Phase != game.PhaseMain {
		return pass, nil
	}
	if c.rng.Float64() >= c.ActionProbability/(1+float64(c.acted)*0.2) {
		return pass, nil
	}
	c.acted++
	return options[c.rng.Intn(len(options))], nil
}

func (c *RandomController) defend(gs *game.GameState, b *game.Battle, actions []game.Action) game.Action {
	var use []game.Action
	var decline game.Action
	for _, a := range actions {
		switch a.Type {
		case game.ActionUseBlocker, game.ActionUseCounter:
			use = append(use, a)
		case game.ActionDeclineBlock, game.ActionEndCounter:
			decline = a
		}
	}
	if len(use) == 0 {
		return decline
	}

	switch b.Step {
	case game.CombatBlocker:
		if c.rng.Float64() < 0.5 {
			return use[c.rng.Intn(len(use))]
		}
		return decline
	case game.CombatCounter:
		if key := [2]int{gs.Turn, b.Attacker}; key != c.battle {
			c.battle = key
			c.counters = 0
			if c.rng.Float64() < 0.5 {
				c.counters = 1 + c.rng.Intn(min(3, len(use)))
			}
		}
		if c.counters > 0 {
			c.counters--
			return use[c.rng.Intn(len(use))]
		}
	}
	return decline
}

// ChooseYesNo answers every question with a coin flip.
func (c *RandomController) ChooseYesNo(context.Context, *game.GameState, string) (bool, error) {
	return c.rng.Float64() < 0.5, nil
}

func (c *RandomController) Notify(context.Context, log.GameEvent) error { return nil }
