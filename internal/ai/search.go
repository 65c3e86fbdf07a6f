package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peterkuimelis/grandline/internal/game"
)

const (
	DefaultDepth     = 3
	DefaultBranching = 5
)

var (
	ErrNoMoves   = errors.New("no legal moves")
	ErrNotToMove = errors.New("player is not the one to move")
)

// Budget bounds one search. Zero fields mean unlimited.
type Budget struct {
	Time  time.Duration
	Nodes int64
}

// Stats describes the work done by the last search.
type Stats struct {
	Nodes    int64         `json:"nodes"`
	Pruned   int64         `json:"pruned"`
	Depth    int           `json:"depth"` // deepest fully completed iteration
	TimedOut bool          `json:"timed_out"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Result is the chosen move and its minimax value for the searching player.
type Result struct {
	Action game.Action
	Score  float64
	Stats  Stats
}

// Searcher is a depth-limited minimax search with alpha-beta pruning. Each ply is
// one action of whoever must decide; battles are settled inside a ply by Defense.
// A Searcher holds no per-search state and may be shared.
type Searcher struct {
	Depth     int                // plies, default DefaultDepth
	Branching int                // candidates kept per ply, default DefaultBranching
	Budget    Budget             // used by Suggest
	Workers   int                // root moves searched in parallel, default 1
	Defense   game.DefensePolicy // defender decisions inside simulated battles
	Weights   *Weights           // nil means DefaultWeights
	Log       *zap.Logger
}

// NewSearcher returns a Searcher with default depth, branching and defense.
func NewSearcher(depth int, budget Budget) *Searcher {
	return &Searcher{Depth: depth, Budget: budget, Defense: DefensivePolicy{}}
}

func (s *Searcher) depth() int {
	if s.Depth <= 0 {
		return DefaultDepth
	}
	return s.Depth
}

func (s *Searcher) branching() int {
	if s.Branching <= 0 {
		return DefaultBranching
	}
	return s.Branching
}

func (s *Searcher) workers() int {
	if s.Workers <= 0 {
		return 1
	}
	return s.Workers
}

func (s *Searcher) defense() game.DefensePolicy {
	if s.Defense == nil {
		return game.NoDefense{}
	}
	return s.Defense
}

func (s *Searcher) weights() Weights {
	if s.Weights == nil {
		return DefaultWeights
	}
	return *s.Weights
}

func (s *Searcher) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// search carries the per-call counters and limits shared by all workers.
type search struct {
	s           *Searcher
	ctx         context.Context
	perspective int
	weights     Weights
	defense     game.DefensePolicy
	deadline    time.Time
	maxNodes    int64

	nodes   atomic.Int64
	pruned  atomic.Int64
	stopped atomic.Bool
}

func (sr *search) timedOut() bool {
	if sr.stopped.Load() {
		return true
	}
	if sr.ctx.Err() != nil ||
		(!sr.deadline.IsZero() && time.Now().After(sr.deadline)) ||
		(sr.maxNodes > 0 && sr.nodes.Load() >= sr.maxNodes) {
		sr.stopped.Store(true)
		return true
	}
	return false
}

// Suggest searches gs for the player who must decide next with the Searcher's
// own budget.
func (s *Searcher) Suggest(ctx context.Context, gs *game.GameState) (Result, error) {
	return s.Search(ctx, gs, gs.Decider(), s.Budget)
}

// Search picks perspective's best action in gs within budget. gs is never
// modified. Iterative deepening keeps the result of the deepest completed
// iteration; when the budget runs out before any iteration completes, the best
// root move seen so far is returned. Equal scores keep the move that comes first
// in game.LegalActions order.
func (s *Searcher) Search(ctx context.Context, gs *game.GameState, perspective int, budget Budget) (Result, error) {
	start := time.Now()
	if gs.Over {
		return Result{}, fmt.Errorf("%w: game is over", ErrNoMoves)
	}
	if d := gs.Decider(); d != perspective {
		return Result{}, fmt.Errorf("%w: P%d must decide, not P%d", ErrNotToMove, d+1, perspective+1)
	}
	legal := game.LegalActions(gs, perspective)
	if len(legal) == 0 {
		return Result{}, fmt.Errorf("%w for P%d in %s", ErrNoMoves, perspective+1, gs.Phase)
	}

	sr := &search{
		s:           s,
		ctx:         ctx,
		perspective: perspective,
		weights:     s.weights(),
		defense:     s.defense(),
		maxNodes:    budget.Nodes,
	}
	if budget.Time > 0 {
		sr.deadline = start.Add(budget.Time)
	}

	// A forced move needs no search.
	if len(legal) == 1 {
		next, err := game.Simulate(gs, legal[0], sr.defense)
		if err != nil {
			return Result{}, err
		}
		sr.nodes.Add(1)
		return Result{
			Action: legal[0],
			Score:  sr.weights.Evaluate(next, perspective),
			Stats:  Stats{Nodes: 1, Depth: 1, Elapsed: time.Since(start)},
		}, nil
	}

	roots := orderActions(gs, legal)
	if len(roots) > s.branching() {
		roots = roots[:s.branching()]
	}

	var best rootResult
	completed := 0
	for depth := 1; depth <= s.depth(); depth++ {
		res, err := sr.root(gs, roots, depth)
		if err != nil {
			return Result{}, err
		}
		if sr.timedOut() {
			if completed == 0 {
				best = res
			}
			break
		}
		best = res
		completed = depth
	}
	if !best.ok {
		// Nothing finished even a single child; fall back to the first candidate.
		best = rootResult{action: roots[0].action, score: math.Inf(-1), ok: true}
	}

	stats := Stats{
		Nodes:    sr.nodes.Load(),
		Pruned:   sr.pruned.Load(),
		Depth:    completed,
		TimedOut: sr.stopped.Load(),
		Elapsed:  time.Since(start),
	}
	s.logger().Debug("search finished",
		zap.String("game", gs.ID),
		zap.Int("player", perspective),
		zap.Stringer("action", best.action),
		zap.Float64("score", best.score),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("pruned", stats.Pruned),
		zap.Int("depth", stats.Depth),
		zap.Bool("timed_out", stats.TimedOut),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return Result{Action: best.action, Score: best.score, Stats: stats}, nil
}

type candidate struct {
	action game.Action
	index  int // position in LegalActions
}

type rootResult struct {
	action game.Action
	score  float64
	index  int
	ok     bool
}

// root scores every root candidate to depth plies with a full window, so each
// value is exact and the choice does not depend on worker scheduling.
func (sr *search) root(gs *game.GameState, roots []candidate, depth int) (rootResult, error) {
	scores := make([]float64, len(roots))
	done := make([]bool, len(roots))

	g := new(errgroup.Group)
	g.SetLimit(sr.s.workers())
	for i, c := range roots {
		g.Go(func() error {
			if sr.timedOut() && depth > 1 {
				return nil
			}
			child, err := game.Simulate(gs, c.action, sr.defense)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", c.action, err)
			}
			scores[i] = sr.minimax(child, depth-1, 1, math.Inf(-1), math.Inf(1))
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rootResult{}, err
	}

	var best rootResult
	for i, c := range roots {
		if !done[i] {
			continue
		}
		if !best.ok || scores[i] > best.score || (scores[i] == best.score && c.index < best.index) {
			best = rootResult{action: c.action, score: scores[i], index: c.index, ok: true}
		}
	}
	return best, nil
}

// leaf scores gs ply actions below the root. Decided games are pulled toward zero
// by their distance, so a quicker win and a slower loss are preferred.
func (sr *search) leaf(gs *game.GameState, ply int) float64 {
	v := sr.weights.Evaluate(gs, sr.perspective)
	switch {
	case gs.Over && v >= TerminalScore:
		return v - float64(ply)
	case gs.Over && v <= -TerminalScore:
		return v + float64(ply)
	}
	return v
}

// minimax returns the value of gs for the searching player. The decider at each
// node maximizes if it is the searching player and minimizes otherwise.
func (sr *search) minimax(gs *game.GameState, depth, ply int, alpha, beta float64) float64 {
	sr.nodes.Add(1)
	if gs.Over || depth <= 0 || sr.timedOut() {
		return sr.leaf(gs, ply)
	}

	decider := gs.Decider()
	legal := game.LegalActions(gs, decider)
	if len(legal) == 0 {
		return sr.leaf(gs, ply)
	}
	moves := orderActions(gs, legal)
	if len(moves) > sr.s.branching() {
		moves = moves[:sr.s.branching()]
	}

	maximizing := decider == sr.perspective
	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}
	explored := 0
	for _, m := range moves {
		child, err := game.Simulate(gs, m.action, sr.defense)
		if err != nil {
			sr.s.logger().Warn("legal action failed in simulation",
				zap.String("game", gs.ID), zap.Stringer("action", m.action), zap.Error(err))
			continue
		}
		explored++
		v := sr.minimax(child, depth-1, ply+1, alpha, beta)
		if maximizing {
			best = math.Max(best, v)
			alpha = math.Max(alpha, v)
		} else {
			best = math.Min(best, v)
			beta = math.Min(beta, v)
		}
		if beta <= alpha {
			sr.pruned.Add(1)
			break
		}
	}
	if explored == 0 {
		return sr.leaf(gs, ply)
	}
	return best
}

// Move ordering priorities, most promising first.
const (
	prioAttackLeader = iota
	prioBlock
	prioAttackCharacter
	prioPlay
	prioCounter
	prioAttach
	prioDecline
	prioMulligan
	prioPass
)

// orderActions sorts legal actions by a cheap heuristic: attacks on the leader,
// blocks, attacks on characters, plays (expensive first), counters, DON!!
// attachments, declining, then passing. Ties keep enumeration order.
func orderActions(gs *game.GameState, legal []game.Action) []candidate {
	type ranked struct {
		candidate
		prio int
		cost int
	}
	rs := make([]ranked, len(legal))
	for i, a := range legal {
		r := ranked{candidate: candidate{action: a, index: i}}
		switch a.Type {
		case game.ActionAttack:
			r.prio = prioAttackCharacter
			if t := gs.Find(a.Target); t != nil && t.Zone == game.ZoneLeader {
				r.prio = prioAttackLeader
			}
		case game.ActionUseBlocker:
			r.prio = prioBlock
		case game.ActionPlayCard:
			r.prio = prioPlay
			if c := gs.Find(a.Card); c != nil {
				r.cost = c.Card.Cost
			}
		case game.ActionUseCounter:
			r.prio = prioCounter
		case game.ActionAttachResource:
			r.prio = prioAttach
		case game.ActionDeclineBlock, game.ActionEndCounter:
			r.prio = prioDecline
		case game.ActionMulligan:
			r.prio = prioMulligan
		default:
			r.prio = prioPass
		}
		rs[i] = r
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].prio != rs[j].prio {
			return rs[i].prio < rs[j].prio
		}
		return rs[i].cost > rs[j].cost
	})
	out := make([]candidate, len(rs))
	for i, r := range rs {
		out[i] = r.candidate
	}
	return out
}
