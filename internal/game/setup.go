package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/peterkuimelis/grandline/internal/log"
)

// GameConfig holds everything needed to start a game.
type GameConfig struct {
	ID                string   // game id; a random UUID if empty
	Decks             [2]*Deck // validated decks for P1 and P2
	Seed              int64    // shuffle seed (0 for random)
	StartingPlayer    int      // 0 or 1
	StartingResources int      // DON!! active at game start
	NoShuffle         bool     // keep deck list order (for deterministic tests)
}

// NewGame deals a new game in the setup phase. Deck order, life cards and opening
// hands depend only on the seed, so equal configs produce equal states.
//
// With NoShuffle the first card of each deck list is the top of the deck: the
// first life cards come off the front of the list, then the opening hand.
func NewGame(cfg GameConfig) (*GameState, error) {
	for i, d := range cfg.Decks {
		if d == nil || d.Leader == nil {
			return nil, fmt.Errorf("%w: P%d has no deck", ErrInvalidDeck, i+1)
		}
	}
	if cfg.StartingPlayer != 0 && cfg.StartingPlayer != 1 {
		return nil, fmt.Errorf("starting player must be 0 or 1, got %d", cfg.StartingPlayer)
	}
	if cfg.StartingResources < 0 || cfg.StartingResources > MaxResourcePool {
		return nil, fmt.Errorf("starting DON!! %d outside 0-%d", cfg.StartingResources, MaxResourcePool)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gs := &GameState{
		ID:        id,
		Active:    cfg.StartingPlayer,
		Phase:     PhaseSetup,
		Seed:      seed,
		NoShuffle: cfg.NoShuffle,
		Winner:    -1,
	}

	for pi, deck := range cfg.Decks {
		p := &Player{
			FirstTurn:      true,
			PlayedThisTurn: make(map[int]bool),
			CardCount:      len(deck.Cards),
			Resources: Resources{
				Deck:   ResourceDeckSize - cfg.StartingResources,
				Active: cfg.StartingResources,
			},
		}
		p.Leader = gs.newInstance(deck.Leader, pi, ZoneLeader)
		instances := make([]*CardInstance, len(deck.Cards))
		for i, c := range deck.Cards {
			instances[i] = gs.newInstance(c, pi, ZoneDeck)
		}
		// Deck top is the last element.
		for i := len(instances) - 1; i >= 0; i-- {
			p.Deck = append(p.Deck, instances[i])
		}
		gs.Players[pi] = p
	}

	for pi, p := range gs.Players {
		gs.shuffle(p)
		for i := 0; i < p.Leader.Card.Life; i++ {
			top := p.Deck[len(p.Deck)-1]
			if _, err := gs.MoveCard(pi, top.ID, ZoneDeck, ZoneLife); err != nil {
				return nil, err
			}
		}
		for i := 0; i < OpeningHandSize; i++ {
			if p.DrawCard() == nil {
				return nil, fmt.Errorf("%w: P%d cannot draw an opening hand", ErrInvalidDeck, pi+1)
			}
		}
	}

	if err := gs.CheckInvariants(); err != nil {
		return nil, err
	}
	return gs, nil
}

func (gs *GameState) newInstance(c *Card, owner int, zone ZoneType) *CardInstance {
	return &CardInstance{Card: c, ID: gs.NextID(), Owner: owner, Zone: zone}
}

// shuffle reorders p's deck with a source derived from the seed and the shuffle
// count, so a state restored from a snapshot shuffles identically.
func (gs *GameState) shuffle(p *Player) {
	gs.Shuffles++
	if gs.NoShuffle {
		return
	}
	rng := rand.New(rand.NewSource(gs.Seed + int64(gs.Shuffles)*7919))
	p.ShuffleDeck(rng)
}

// mulligan returns the hand to the deck, reshuffles and draws a new hand.
func (x *executor) mulligan(player int) {
	gs := x.gs
	p := gs.Players[player]
	for len(p.Hand) > 0 {
		ci := p.Hand[0]
		if _, err := gs.MoveCard(player, ci.ID, ZoneHand, ZoneDeck); err != nil {
			x.fail(fmt.Errorf("%w: %v", ErrInvariant, err))
			return
		}
	}
	gs.shuffle(p)
	x.log(log.NewShuffleEvent(gs.Turn, x.phase(), player))
	for i := 0; i < OpeningHandSize; i++ {
		if p.DrawCard() == nil {
			x.fail(fmt.Errorf("%w: P%d deck too small to redraw", ErrInvariant, player+1))
			return
		}
	}
	p.Mulliganed = true
	x.log(log.NewMulliganEvent(gs.Turn, x.phase(), player))
}
