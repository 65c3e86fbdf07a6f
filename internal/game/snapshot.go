package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// SnapshotVersion is bumped whenever the snapshot layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the serializable form of a GameState. It carries the card
// definitions it references, so it can be restored without a catalog. Field order
// is fixed and every collection is emitted in a deterministic order, so
// serialize → deserialize → serialize yields identical bytes.
type Snapshot struct {
	Version      int             `json:"version"`
	ID           string          `json:"id"`
	Seed         int64           `json:"seed"`
	Shuffles     int             `json:"shuffles"`
	NoShuffle    bool            `json:"no_shuffle,omitempty"`
	Turn         int             `json:"turn"`
	Active       int             `json:"active"`
	Phase        Phase           `json:"phase"`
	NextInstance int             `json:"next_instance"`
	Winner       int             `json:"winner"`
	Over         bool            `json:"over,omitempty"`
	Result       string          `json:"result,omitempty"`
	Battle       *Battle         `json:"battle,omitempty"`
	Players      [2]PlayerRecord `json:"players"`
	Cards        []CardDef       `json:"cards"`
}

// PlayerRecord is one player's zones. Zone membership and ownership are implied by
// position in the record.
type PlayerRecord struct {
	Leader         CardRecord     `json:"leader"`
	Hand           []CardRecord   `json:"hand,omitempty"`
	Characters     []CardRecord   `json:"characters,omitempty"`
	Stage          *CardRecord    `json:"stage,omitempty"`
	Deck           []CardRecord   `json:"deck,omitempty"`
	Trash          []CardRecord   `json:"trash,omitempty"`
	Life           []CardRecord   `json:"life,omitempty"`
	Resources      ResourceRecord `json:"resources"`
	Defeated       bool           `json:"defeated,omitempty"`
	FirstTurn      bool           `json:"first_turn,omitempty"`
	Mulliganed     bool           `json:"mulliganed,omitempty"`
	PlayedThisTurn []int          `json:"played_this_turn,omitempty"`
	CardCount      int            `json:"card_count"`
}

// CardRecord is one card instance.
type CardRecord struct {
	ID     int    `json:"id"`
	Card   string `json:"card"`
	Rested bool   `json:"rested,omitempty"`
}

// ResourceRecord is a player's DON!! state; Attached is sorted by card.
type ResourceRecord struct {
	Deck     int              `json:"deck"`
	Active   int              `json:"active"`
	Rested   int              `json:"rested"`
	Attached []AttachedRecord `json:"attached,omitempty"`
}

type AttachedRecord struct {
	Card  int `json:"card"`
	Count int `json:"count"`
}

// Snapshot captures gs. The result shares nothing with gs.
func (gs *GameState) Snapshot() *Snapshot {
	s := &Snapshot{
		Version:      SnapshotVersion,
		ID:           gs.ID,
		Seed:         gs.Seed,
		Shuffles:     gs.Shuffles,
		NoShuffle:    gs.NoShuffle,
		Turn:         gs.Turn,
		Active:       gs.Active,
		Phase:        gs.Phase,
		NextInstance: gs.NextInstance,
		Winner:       gs.Winner,
		Over:         gs.Over,
		Result:       gs.Result,
	}
	if gs.Battle != nil {
		s.Battle = gs.Battle.clone()
	}

	defs := make(map[string]CardDef)
	rec := func(ci *CardInstance) CardRecord {
		defs[ci.Card.ID] = ci.Card.Def()
		return CardRecord{ID: ci.ID, Card: ci.Card.ID, Rested: ci.Rested}
	}
	recs := func(list []*CardInstance) []CardRecord {
		if len(list) == 0 {
			return nil
		}
		out := make([]CardRecord, len(list))
		for i, ci := range list {
			out[i] = rec(ci)
		}
		return out
	}

	for i, p := range gs.Players {
		pr := PlayerRecord{
			Leader:     rec(p.Leader),
			Hand:       recs(p.Hand),
			Characters: recs(p.Characters),
			Deck:       recs(p.Deck),
			Trash:      recs(p.Trash),
			Life:       recs(p.Life),
			Resources: ResourceRecord{
				Deck:   p.Resources.Deck,
				Active: p.Resources.Active,
				Rested: p.Resources.Rested,
			},
			Defeated:   p.Defeated,
			FirstTurn:  p.FirstTurn,
			Mulliganed: p.Mulliganed,
			CardCount:  p.CardCount,
		}
		if p.Stage != nil {
			r := rec(p.Stage)
			pr.Stage = &r
		}
		for id, n := range p.Resources.Attached {
			pr.Resources.Attached = append(pr.Resources.Attached, AttachedRecord{Card: id, Count: n})
		}
		sort.Slice(pr.Resources.Attached, func(a, b int) bool {
			return pr.Resources.Attached[a].Card < pr.Resources.Attached[b].Card
		})
		for id, played := range p.PlayedThisTurn {
			if played {
				pr.PlayedThisTurn = append(pr.PlayedThisTurn, id)
			}
		}
		sort.Ints(pr.PlayedThisTurn)
		s.Players[i] = pr
	}

	for _, d := range defs {
		s.Cards = append(s.Cards, d)
	}
	sort.Slice(s.Cards, func(a, b int) bool { return s.Cards[a].ID < s.Cards[b].ID })
	return s
}

// Restore rebuilds a GameState from the snapshot and checks its invariants.
func (s *Snapshot) Restore() (*GameState, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	cards := make(map[string]*Card, len(s.Cards))
	for _, def := range s.Cards {
		c, err := NewCard(def)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		cards[def.ID] = c
	}

	gs := &GameState{
		ID:           s.ID,
		Seed:         s.Seed,
		Shuffles:     s.Shuffles,
		NoShuffle:    s.NoShuffle,
		Turn:         s.Turn,
		Active:       s.Active,
		Phase:        s.Phase,
		NextInstance: s.NextInstance,
		Winner:       s.Winner,
		Over:         s.Over,
		Result:       s.Result,
	}
	if s.Battle != nil {
		gs.Battle = s.Battle.clone()
	}

	var err error
	inst := func(r CardRecord, owner int, zone ZoneType) *CardInstance {
		c, ok := cards[r.Card]
		if !ok {
			if err == nil {
				err = fmt.Errorf("snapshot: %w %q for instance #%d", ErrUnknownCard, r.Card, r.ID)
			}
			c = &Card{ID: r.Card, Name: r.Card}
		}
		return &CardInstance{Card: c, ID: r.ID, Owner: owner, Zone: zone, Rested: r.Rested}
	}
	insts := func(rs []CardRecord, owner int, zone ZoneType) []*CardInstance {
		if len(rs) == 0 {
			return nil
		}
		out := make([]*CardInstance, len(rs))
		for i, r := range rs {
			out[i] = inst(r, owner, zone)
		}
		return out
	}

	for i, pr := range s.Players {
		p := &Player{
			Leader:     inst(pr.Leader, i, ZoneLeader),
			Hand:       insts(pr.Hand, i, ZoneHand),
			Characters: insts(pr.Characters, i, ZoneCharacter),
			Deck:       insts(pr.Deck, i, ZoneDeck),
			Trash:      insts(pr.Trash, i, ZoneTrash),
			Life:       insts(pr.Life, i, ZoneLife),
			Resources: Resources{
				Deck:   pr.Resources.Deck,
				Active: pr.Resources.Active,
				Rested: pr.Resources.Rested,
			},
			Defeated:       pr.Defeated,
			FirstTurn:      pr.FirstTurn,
			Mulliganed:     pr.Mulliganed,
			PlayedThisTurn: make(map[int]bool, len(pr.PlayedThisTurn)),
			CardCount:      pr.CardCount,
		}
		if pr.Stage != nil {
			p.Stage = inst(*pr.Stage, i, ZoneStage)
		}
		if len(pr.Resources.Attached) > 0 {
			p.Resources.Attached = make(map[int]int, len(pr.Resources.Attached))
			for _, a := range pr.Resources.Attached {
				p.Resources.Attached[a.Card] = a.Count
			}
		}
		for _, id := range pr.PlayedThisTurn {
			p.PlayedThisTurn[id] = true
		}
		gs.Players[i] = p
	}
	if err != nil {
		return nil, err
	}
	if err := gs.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return gs, nil
}

// MarshalSnapshot serializes gs to its canonical JSON form.
func MarshalSnapshot(gs *GameState) ([]byte, error) {
	return json.Marshal(gs.Snapshot())
}

// UnmarshalSnapshot parses canonical JSON and restores the state.
func UnmarshalSnapshot(data []byte) (*GameState, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s.Restore()
}

// Checksum returns the SHA-256 of the canonical snapshot, hex encoded.
func Checksum(gs *GameState) (string, error) {
	data, err := MarshalSnapshot(gs)
	if err != nil {
		return "", err
	}
	return ChecksumOf(data), nil
}

// ChecksumOf hashes snapshot bytes that are already encoded.
func ChecksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
