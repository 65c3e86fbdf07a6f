// Package service is the engine boundary. Every call takes and returns canonical
// snapshots, so callers never hold a live GameState and never decide legality
// themselves.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/log"
	"github.com/peterkuimelis/grandline/internal/store"
)

var (
	ErrGameOver    = errors.New("game is over")
	ErrNotFinished = errors.New("game is not finished")
	ErrNoArchive   = errors.New("no game archive configured")
	ErrBadPlayer   = errors.New("player must be 0 or 1")
)

// Archiver stores finished games.
type Archiver interface {
	SaveGame(rec *store.GameRecord) error
}

// Options configures a Service. Catalog is required; the rest have defaults.
type Options struct {
	Catalog           game.Catalog
	Archive           Archiver
	Searcher          *ai.Searcher
	Logger            *zap.Logger
	StartingResources int
}

// Service implements the snapshot operations on top of one catalog and searcher.
// It keeps no per-game state and is safe for concurrent use.
type Service struct {
	catalog           game.Catalog
	archive           Archiver
	searcher          *ai.Searcher
	log               *zap.Logger
	startingResources int
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	searcher := opts.Searcher
	if searcher == nil {
		searcher = ai.NewSearcher(ai.DefaultDepth, ai.Budget{})
	}
	if searcher.Log == nil {
		searcher.Log = logger.Named("search")
	}
	return &Service{
		catalog:           opts.Catalog,
		archive:           opts.Archive,
		searcher:          searcher,
		log:               logger,
		startingResources: opts.StartingResources,
	}
}

// State is a snapshot plus the facts a caller usually wants without decoding it.
type State struct {
	Snapshot []byte `json:"-"`
	Checksum string `json:"checksum"`
	GameID   string `json:"game_id"`
	Turn     int    `json:"turn"`
	Phase    string `json:"phase"`
	Decider  int    `json:"decider"`
	Over     bool   `json:"over"`
	Winner   int    `json:"winner"`
	Result   string `json:"result,omitempty"`
	Summary  string `json:"summary"`
}

func stateOf(gs *game.GameState) (*State, error) {
	data, err := game.MarshalSnapshot(gs)
	if err != nil {
		return nil, err
	}
	return &State{
		Snapshot: data,
		Checksum: game.ChecksumOf(data),
		GameID:   gs.ID,
		Turn:     gs.Turn,
		Phase:    gs.Phase.String(),
		Decider:  gs.Decider(),
		Over:     gs.Over,
		Winner:   gs.Winner,
		Result:   gs.Result,
		Summary:  gs.Summary(),
	}, nil
}

// NewGameRequest names the two decks by catalog id.
type NewGameRequest struct {
	ID             string    `json:"id,omitempty"`
	Decks          [2]string `json:"decks"`
	Seed           int64     `json:"seed,omitempty"`
	StartingPlayer int       `json:"starting_player"`
}

// NewGame deals a new game in the setup phase.
func (s *Service) NewGame(req NewGameRequest) (*State, error) {
	gs, err := s.deal(req)
	if err != nil {
		return nil, err
	}
	return stateOf(gs)
}

func (s *Service) deal(req NewGameRequest) (*game.GameState, error) {
	var decks [2]*game.Deck
	for i, id := range req.Decks {
		d, err := s.catalog.GetDeck(id)
		if err != nil {
			return nil, fmt.Errorf("P%d deck: %w", i+1, err)
		}
		decks[i] = d
	}
	gs, err := game.NewGame(game.GameConfig{
		ID:                req.ID,
		Decks:             decks,
		Seed:              req.Seed,
		StartingPlayer:    req.StartingPlayer,
		StartingResources: s.startingResources,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("game dealt",
		zap.String("game", gs.ID),
		zap.String("p1_deck", req.Decks[0]),
		zap.String("p2_deck", req.Decks[1]),
		zap.Int64("seed", gs.Seed))
	return gs, nil
}

func restore(snapshot []byte) (*game.GameState, error) {
	gs, err := game.UnmarshalSnapshot(snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return gs, nil
}

func checkPlayer(player int) error {
	if player != 0 && player != 1 {
		return fmt.Errorf("%w, got %d", ErrBadPlayer, player)
	}
	return nil
}

// LegalActions lists player's legal actions in the snapshot, in the engine's
// enumeration order. A player with nothing to decide gets an empty list.
func (s *Service) LegalActions(snapshot []byte, player int) ([]game.Action, error) {
	if err := checkPlayer(player); err != nil {
		return nil, err
	}
	gs, err := restore(snapshot)
	if err != nil {
		return nil, err
	}
	return game.LegalActions(gs, player), nil
}

// Applied is the outcome of one accepted action.
type Applied struct {
	State  *State          `json:"state"`
	Events []log.GameEvent `json:"events"`
}

// Apply executes a against the snapshot. An illegal action returns a
// *game.Rejection and no state; the input snapshot is never changed.
func (s *Service) Apply(snapshot []byte, a game.Action) (*Applied, error) {
	gs, err := restore(snapshot)
	if err != nil {
		return nil, err
	}
	return s.apply(gs, a)
}

func (s *Service) apply(gs *game.GameState, a game.Action) (*Applied, error) {
	if gs.Over {
		return nil, fmt.Errorf("%w: %s", ErrGameOver, gs.Result)
	}
	events := log.NewZapLogger(s.log.With(zap.String("game", gs.ID)))
	if err := game.NewRules(events, s.log).Apply(gs, a); err != nil {
		var rej *game.Rejection
		if errors.As(err, &rej) {
			s.log.Debug("action rejected", zap.String("game", gs.ID), zap.Error(rej))
		}
		return nil, err
	}
	st, err := stateOf(gs)
	if err != nil {
		return nil, err
	}
	return &Applied{State: st, Events: events.Events()}, nil
}

// Evaluate scores the snapshot from player's side with the default weights.
func (s *Service) Evaluate(snapshot []byte, player int) (float64, error) {
	if err := checkPlayer(player); err != nil {
		return 0, err
	}
	gs, err := restore(snapshot)
	if err != nil {
		return 0, err
	}
	return ai.Evaluate(gs, player), nil
}

// SuggestMove searches for player's best action within budget. A zero budget
// uses the searcher's own.
func (s *Service) SuggestMove(ctx context.Context, snapshot []byte, player int, budget ai.Budget) (ai.Result, error) {
	if err := checkPlayer(player); err != nil {
		return ai.Result{}, err
	}
	gs, err := restore(snapshot)
	if err != nil {
		return ai.Result{}, err
	}
	if budget == (ai.Budget{}) {
		budget = s.searcher.Budget
	}
	return s.searcher.Search(ctx, gs, player, budget)
}

// Archive stores a finished game along with the replay that produced it. The
// replay is run again and must reach the same turn and winner.
func (s *Service) Archive(final []byte, decks [2]string, rp *game.Replay) (*store.GameRecord, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	gs, err := restore(final)
	if err != nil {
		return nil, err
	}
	if !gs.Over {
		return nil, fmt.Errorf("%w: %s turn %d", ErrNotFinished, gs.ID, gs.Turn)
	}
	var encoded bytes.Buffer
	if rp != nil {
		replayed, err := rp.Run(nil, -1)
		if err != nil {
			return nil, fmt.Errorf("verify replay: %w", err)
		}
		// A turn limit ends a match outside the rules, so only a decided replay
		// has a winner to compare.
		if replayed.Turn != gs.Turn || (replayed.Over && replayed.Winner != gs.Winner) {
			return nil, fmt.Errorf("verify replay: ends at turn %d winner %d, want turn %d winner %d",
				replayed.Turn, replayed.Winner, gs.Turn, gs.Winner)
		}
		if err := rp.Encode(&encoded); err != nil {
			return nil, err
		}
	}
	sum, err := game.Checksum(gs)
	if err != nil {
		return nil, err
	}
	rec := &store.GameRecord{
		ID:       gs.ID,
		P1DeckID: decks[0],
		P2DeckID: decks[1],
		Winner:   gs.Winner,
		Result:   gs.Result,
		Turns:    gs.Turn,
		Checksum: sum,
		Snapshot: final,
		Replay:   encoded.Bytes(),
	}
	if err := s.archive.SaveGame(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
