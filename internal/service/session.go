package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/game"
)

var (
	ErrUnknownGame = errors.New("unknown game")
	ErrAbandoned   = errors.New("game session abandoned")
	ErrBadIndex    = errors.New("action index out of range")
)

// Table holds the live games served to remote players. Each game is owned by its
// Session and only mutated under the session lock.
type Table struct {
	svc *Service

	mu    sync.Mutex
	games map[string]*Session
}

func NewTable(svc *Service) *Table {
	return &Table{svc: svc, games: make(map[string]*Session)}
}

// Open deals a new game and seats it at the table.
func (t *Table) Open(req NewGameRequest) (*Session, error) {
	gs, err := t.svc.deal(req)
	if err != nil {
		return nil, err
	}
	rp, err := game.NewReplay(gs)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:       gs.ID,
		Decks:    req.Decks,
		svc:      t.svc,
		table:    t,
		state:    gs,
		replay:   rp,
		watchers: make(map[chan *State]struct{}),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.games[gs.ID]; dup {
		return nil, fmt.Errorf("game %s already open", gs.ID)
	}
	t.games[gs.ID] = sess
	return sess, nil
}

func (t *Table) Get(id string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.games[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownGame, id)
	}
	return sess, nil
}

// Close removes a game and ends its watch streams.
func (t *Table) Close(id string) error {
	t.mu.Lock()
	sess, ok := t.games[id]
	delete(t.games, id)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownGame, id)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closeWatchers()
	return nil
}

// drop removes sess if it is still the game seated under its id.
func (t *Table) drop(sess *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.games[sess.ID] == sess {
		delete(t.games, sess.ID)
	}
}

// IDs lists the open games in sorted order.
func (t *Table) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.games))
	for id := range t.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Session is one live game with its action log.
type Session struct {
	ID    string
	Decks [2]string

	svc      *Service
	table    *Table
	mu       sync.Mutex
	state    *game.GameState
	replay   *game.Replay
	archived bool
	fault    error // set once an invariant fault ends the session
	watchers map[chan *State]struct{}
}

// usable reports the fault that ended the session, if any. Callers hold s.mu.
func (s *Session) usable() error {
	if s.fault != nil {
		return fmt.Errorf("%w %s: %w", ErrAbandoned, s.ID, s.fault)
	}
	return nil
}

// closeWatchers ends every watch stream. Callers hold s.mu.
func (s *Session) closeWatchers() {
	for ch := range s.watchers {
		close(ch)
		delete(s.watchers, ch)
	}
}

func (s *Session) State() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	return stateOf(s.state)
}

func (s *Session) LegalActions(player int) ([]game.Action, error) {
	if err := checkPlayer(player); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	return game.LegalActions(s.state, player), nil
}

// Describe renders actions with the card names of the current state.
func (s *Session) Describe(actions []game.Action) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Describe(s.state)
	}
	return out
}

// Apply executes one action. When it ends the game the session is archived, if
// the service has an archive. An invariant fault abandons the session: it leaves
// the table, its watchers are closed and every later call fails with ErrAbandoned.
func (s *Session) Apply(a game.Action) (*Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(a)
}

// ApplyIndex applies the index-th legal action of the player who must decide.
// The lookup and the move happen under one lock.
func (s *Session) ApplyIndex(index int) (game.Action, *Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return game.Action{}, nil, err
	}
	actions := game.LegalActions(s.state, s.state.Decider())
	if index < 0 || index >= len(actions) {
		return game.Action{}, nil, fmt.Errorf("%w: %d not in 0-%d", ErrBadIndex, index, len(actions)-1)
	}
	a := actions[index]
	res, err := s.applyLocked(a)
	return a, res, err
}

func (s *Session) applyLocked(a game.Action) (*Applied, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	res, err := s.svc.apply(s.state, a)
	if errors.Is(err, game.ErrInvariant) {
		s.abandon(err)
		return nil, fmt.Errorf("%w %s: %w", ErrAbandoned, s.ID, err)
	}
	if err != nil {
		return nil, err
	}
	s.replay.Record(a)
	if s.state.Over && !s.archived && s.svc.archive != nil {
		if _, err := s.svc.Archive(res.State.Snapshot, s.Decks, s.replay); err != nil {
			s.svc.log.Error("archive failed", zap.String("game", s.ID), zap.Error(err))
		} else {
			s.archived = true
		}
	}
	for ch := range s.watchers {
		select {
		case ch <- res.State:
		default:
			// A slow watcher skips a frame; the next one carries the full state.
		}
	}
	return res, nil
}

// abandon ends the session after an invariant fault. Callers hold s.mu.
func (s *Session) abandon(err error) {
	s.fault = err
	s.svc.log.Error("game session abandoned",
		zap.String("game", s.ID),
		zap.Int("turn", s.state.Turn),
		zap.Stringer("phase", s.state.Phase),
		zap.Int("actions", len(s.replay.Actions)),
		zap.Error(err))
	s.closeWatchers()
	if s.table != nil {
		s.table.drop(s)
	}
}

func (s *Session) Evaluate(player int) (float64, error) {
	if err := checkPlayer(player); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return 0, err
	}
	return ai.Evaluate(s.state, player), nil
}

// Suggest searches for the best action of whoever must decide.
func (s *Session) Suggest(ctx context.Context, budget ai.Budget) (ai.Result, error) {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return ai.Result{}, err
	}
	gs := s.state.Clone()
	s.mu.Unlock()
	if budget == (ai.Budget{}) {
		budget = s.svc.searcher.Budget
	}
	return s.svc.searcher.Search(ctx, gs, gs.Decider(), budget)
}

// Watch returns a stream of states, one per applied action. The stream is closed
// when cancel is called or the game leaves the table.
func (s *Session) Watch() (<-chan *State, func()) {
	ch := make(chan *State, 8)
	s.mu.Lock()
	if s.fault != nil {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}
	return ch, cancel
}
