package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Replay records a game as its starting snapshot plus the actions applied to it,
// and the answers given to [Trigger] prompts in the order they were asked.
type Replay struct {
	GameID   string
	Initial  []byte // canonical snapshot JSON
	Actions  []Action
	Triggers []bool
}

// NewReplay starts a recording from the current state of gs.
func NewReplay(gs *GameState) (*Replay, error) {
	data, err := MarshalSnapshot(gs)
	if err != nil {
		return nil, err
	}
	return &Replay{GameID: gs.ID, Initial: data}, nil
}

// Record appends an applied action.
func (rp *Replay) Record(a Action) {
	rp.Actions = append(rp.Actions, a)
}

// RecordTrigger appends a trigger decision.
func (rp *Replay) RecordTrigger(activated bool) {
	rp.Triggers = append(rp.Triggers, activated)
}

// Run replays every action against a fresh copy of the initial state and returns
// the final state. steps limits the number of actions replayed (negative for all).
func (rp *Replay) Run(r *Rules, steps int) (*GameState, error) {
	gs, err := UnmarshalSnapshot(rp.Initial)
	if err != nil {
		return nil, err
	}
	play := Rules{Triggers: &scriptedTriggers{answers: rp.Triggers}}
	if r != nil {
		play.Events, play.Log = r.Events, r.Log
	}
	for i, a := range rp.Actions {
		if steps >= 0 && i >= steps {
			break
		}
		if err := play.Apply(gs, a); err != nil {
			return nil, fmt.Errorf("replay step %d (%s): %w", i+1, a, err)
		}
	}
	return gs, nil
}

type scriptedTriggers struct {
	answers []bool
	next    int
}

func (s *scriptedTriggers) ActivateTrigger(*GameState, int, *CardInstance) bool {
	if s.next >= len(s.answers) {
		return false
	}
	s.next++
	return s.answers[s.next-1]
}

// Encode writes the replay gzip-compressed in gob encoding.
func (rp *Replay) Encode(w io.Writer) error {
	zw := gzip.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(rp); err != nil {
		zw.Close()
		return fmt.Errorf("encode replay: %w", err)
	}
	return zw.Close()
}

// DecodeReplay reads a replay written by Encode.
func DecodeReplay(r io.Reader) (*Replay, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer zr.Close()
	var rp Replay
	if err := gob.NewDecoder(zr).Decode(&rp); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	return &rp, nil
}

// SaveToFile writes the replay to <dir>/<game id>.replay.
func (rp *Replay) SaveToFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create replay directory: %w", err)
	}
	path := filepath.Join(dir, rp.GameID+".replay")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create replay file: %w", err)
	}
	if err := rp.Encode(f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// LoadReplayFile reads a replay saved by SaveToFile.
func LoadReplayFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeReplay(f)
}
