package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

const (
	OpeningHandSize     = 5
	CharacterAreaSize   = 5
	ResourceDeckSize    = 10
	MaxResourcePool     = 10
	ResourcesPerRefresh = 2
	ResourcePowerBonus  = 1000
)

var (
	ErrCapacity  = errors.New("zone capacity exceeded")
	ErrNotInZone = errors.New("card not in zone")
	ErrInvariant = errors.New("state invariant violated")
	ErrGameOver  = errors.New("game is over")
)

// Resources is a player's DON!! state. Tokens in play are split between active,
// rested and attached; the rest wait in the resource deck.
type Resources struct {
	Deck     int
	Active   int
	Rested   int
	Attached map[int]int // card instance ID → tokens
}

// Total returns the number of tokens in play.
func (r *Resources) Total() int {
	n := r.Active + r.Rested
	for _, v := range r.Attached {
		n += v
	}
	return n
}

// AttachedTo returns the tokens attached to a card.
func (r *Resources) AttachedTo(id int) int {
	return r.Attached[id]
}

// Spend rests n active tokens.
func (r *Resources) Spend(n int) error {
	if n < 0 || n > r.Active {
		return fmt.Errorf("spend %d DON!!: only %d active", n, r.Active)
	}
	r.Active -= n
	r.Rested += n
	return nil
}

// Attach moves one active token onto a card.
func (r *Resources) Attach(id int) error {
	if r.Active < 1 {
		return fmt.Errorf("attach DON!!: none active")
	}
	if r.Attached == nil {
		r.Attached = make(map[int]int)
	}
	r.Active--
	r.Attached[id]++
	return nil
}

// Release returns the tokens attached to a card that left play as rested tokens.
func (r *Resources) Release(id int) int {
	n := r.Attached[id]
	if n > 0 {
		r.Rested += n
		delete(r.Attached, id)
	}
	return n
}

// Refresh returns every token in play to active and adds up to ResourcesPerRefresh
// from the resource deck without exceeding MaxResourcePool. Returns (detached, gained).
func (r *Resources) Refresh() (int, int) {
	detached := 0
	for id, n := range r.Attached {
		detached += n
		delete(r.Attached, id)
	}
	r.Active += detached + r.Rested
	r.Rested = 0

	gain := ResourcesPerRefresh
	if gain > r.Deck {
		gain = r.Deck
	}
	if room := MaxResourcePool - r.Total(); gain > room {
		gain = room
	}
	if gain < 0 {
		gain = 0
	}
	r.Deck -= gain
	r.Active += gain
	return detached, gain
}

func (r Resources) clone() Resources {
	cp := r
	if r.Attached != nil {
		cp.Attached = make(map[int]int, len(r.Attached))
		for k, v := range r.Attached {
			cp.Attached[k] = v
		}
	}
	return cp
}

// Player represents one player's entire state.
type Player struct {
	Leader     *CardInstance
	Hand       []*CardInstance
	Characters []*CardInstance // ordered, at most CharacterAreaSize
	Stage      *CardInstance
	Deck       []*CardInstance // top of deck is last element (pop from end)
	Trash      []*CardInstance
	Life       []*CardInstance // top life card is last element
	Resources  Resources

	Defeated       bool
	FirstTurn      bool
	Mulliganed     bool
	PlayedThisTurn map[int]bool

	// CardCount is the number of non-leader cards the player started with.
	CardCount int
}

// DeckCount returns the number of cards remaining in the deck.
func (p *Player) DeckCount() int {
	return len(p.Deck)
}

// HandCount returns the number of cards in hand.
func (p *Player) HandCount() int {
	return len(p.Hand)
}

// ZoneCardCount counts every card the player owns, leader included.
func (p *Player) ZoneCardCount() int {
	n := len(p.Hand) + len(p.Characters) + len(p.Deck) + len(p.Trash) + len(p.Life)
	if p.Stage != nil {
		n++
	}
	if p.Leader != nil {
		n++
	}
	return n
}

// DrawCard removes the top card from the deck and adds it to the hand.
// Returns the drawn card, or nil if the deck is empty.
func (p *Player) DrawCard() *CardInstance {
	if len(p.Deck) == 0 {
		return nil
	}
	card := p.Deck[len(p.Deck)-1]
	p.Deck = p.Deck[:len(p.Deck)-1]
	card.Zone = ZoneHand
	card.Rested = false
	p.Hand = append(p.Hand, card)
	return card
}

// InHand returns the hand card with the given ID.
func (p *Player) InHand(id int) *CardInstance {
	for _, c := range p.Hand {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Character returns the character in play with the given ID.
func (p *Player) Character(id int) *CardInstance {
	for _, c := range p.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// InPlay returns the leader or a character with the given ID.
func (p *Player) InPlay(id int) *CardInstance {
	if p.Leader != nil && p.Leader.ID == id {
		return p.Leader
	}
	return p.Character(id)
}

// Find returns the card with the given ID in any of the player's zones.
func (p *Player) Find(id int) *CardInstance {
	var found *CardInstance
	p.each(func(ci *CardInstance) {
		if ci.ID == id {
			found = ci
		}
	})
	return found
}

func (p *Player) each(fn func(ci *CardInstance)) {
	if p.Leader != nil {
		fn(p.Leader)
	}
	for _, zone := range [][]*CardInstance{p.Hand, p.Characters, p.Deck, p.Trash, p.Life} {
		for _, ci := range zone {
			fn(ci)
		}
	}
	if p.Stage != nil {
		fn(p.Stage)
	}
}

func (p *Player) zone(z ZoneType) *[]*CardInstance {
	switch z {
	case ZoneHand:
		return &p.Hand
	case ZoneCharacter:
		return &p.Characters
	case ZoneDeck:
		return &p.Deck
	case ZoneTrash:
		return &p.Trash
	case ZoneLife:
		return &p.Life
	}
	return nil
}

func (p *Player) take(id int, from ZoneType) (*CardInstance, error) {
	if from == ZoneStage {
		if p.Stage == nil || p.Stage.ID != id {
			return nil, fmt.Errorf("%w: #%d not in %s", ErrNotInZone, id, from)
		}
		ci := p.Stage
		p.Stage = nil
		return ci, nil
	}
	list := p.zone(from)
	if list == nil {
		return nil, fmt.Errorf("%w: cannot remove from %s", ErrNotInZone, from)
	}
	for i, ci := range *list {
		if ci.ID == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return ci, nil
		}
	}
	return nil, fmt.Errorf("%w: #%d not in %s", ErrNotInZone, id, from)
}

func (p *Player) put(ci *CardInstance, to ZoneType) error {
	switch to {
	case ZoneStage:
		if p.Stage != nil {
			return fmt.Errorf("%w: stage area occupied", ErrCapacity)
		}
		p.Stage = ci
	case ZoneCharacter:
		if len(p.Characters) >= CharacterAreaSize {
			return fmt.Errorf("%w: character area holds %d", ErrCapacity, CharacterAreaSize)
		}
		p.Characters = append(p.Characters, ci)
	default:
		list := p.zone(to)
		if list == nil {
			return fmt.Errorf("%w: cannot place into %s", ErrNotInZone, to)
		}
		*list = append(*list, ci)
	}
	ci.Zone = to
	return nil
}

// ShuffleDeck randomizes the deck order with the given source.
func (p *Player) ShuffleDeck(rng *rand.Rand) {
	rng.Shuffle(len(p.Deck), func(i, j int) {
		p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
	})
}

func (p *Player) clone() *Player {
	cp := &Player{
		Leader:     p.Leader.clone(),
		Hand:       cloneInstances(p.Hand),
		Characters: cloneInstances(p.Characters),
		Stage:      p.Stage.clone(),
		Deck:       cloneInstances(p.Deck),
		Trash:      cloneInstances(p.Trash),
		Life:       cloneInstances(p.Life),
		Resources:  p.Resources.clone(),
		Defeated:   p.Defeated,
		FirstTurn:  p.FirstTurn,
		Mulliganed: p.Mulliganed,
		CardCount:  p.CardCount,
	}
	if p.PlayedThisTurn != nil {
		cp.PlayedThisTurn = make(map[int]bool, len(p.PlayedThisTurn))
		for k, v := range p.PlayedThisTurn {
			cp.PlayedThisTurn[k] = v
		}
	}
	return cp
}

func cloneInstances(in []*CardInstance) []*CardInstance {
	if in == nil {
		return nil
	}
	out := make([]*CardInstance, len(in))
	for i, ci := range in {
		out[i] = ci.clone()
	}
	return out
}

// --- GameState ---

// GameState holds the complete state of a game.
type GameState struct {
	ID      string
	Players [2]*Player
	Turn    int // 0 during setup, then 1-based
	Active  int // 0 or 1: whose turn it is
	Phase   Phase
	Battle  *Battle // non-nil only while an attack is being resolved

	// Shuffle randomness is derived from Seed and the number of shuffles so far,
	// so a restored snapshot continues the same sequence.
	Seed      int64
	Shuffles  int
	NoShuffle bool

	// ID counter for card instances
	NextInstance int

	// Game result
	Winner int // 0, 1, or -1 (no winner yet)
	Over   bool
	Result string
}

// NextID generates a unique card instance ID.
func (gs *GameState) NextID() int {
	gs.NextInstance++
	return gs.NextInstance
}

// Opponent returns the index of the other player.
func (gs *GameState) Opponent(player int) int {
	return 1 - player
}

// CurrentPlayer returns the Player struct for the turn player.
func (gs *GameState) CurrentPlayer() *Player {
	return gs.Players[gs.Active]
}

// OpponentPlayer returns the Player struct for the non-turn player.
func (gs *GameState) OpponentPlayer() *Player {
	return gs.Players[gs.Opponent(gs.Active)]
}

// Decider returns the player who must act next: the defender while a battle
// waits for block or counter decisions, otherwise the turn player.
func (gs *GameState) Decider() int {
	if gs.Battle != nil {
		return gs.Battle.Defender
	}
	return gs.Active
}

// Find locates a card instance anywhere in the game.
func (gs *GameState) Find(id int) *CardInstance {
	for _, p := range gs.Players {
		if ci := p.Find(id); ci != nil {
			return ci
		}
	}
	return nil
}

// MoveCard moves a card between two of its owner's zones. The card is removed
// first; if it cannot be placed it is put back and the state is unchanged.
func (gs *GameState) MoveCard(owner, id int, from, to ZoneType) (*CardInstance, error) {
	p := gs.Players[owner]
	ci, err := p.take(id, from)
	if err != nil {
		return nil, err
	}
	if err := p.put(ci, to); err != nil {
		// put back where it was; from-zones have no capacity limit that could now fail
		p.restore(ci, from)
		return nil, err
	}
	if to != ZoneCharacter && to != ZoneLeader {
		ci.Rested = false
	}
	return ci, nil
}

func (p *Player) restore(ci *CardInstance, z ZoneType) {
	if z == ZoneStage {
		p.Stage = ci
	} else if list := p.zone(z); list != nil {
		*list = append(*list, ci)
	}
	ci.Zone = z
}

// Power returns a card's power including attached DON!!, which only counts on its
// owner's turn.
func (gs *GameState) Power(ci *CardInstance) int {
	power := ci.Card.Power
	if ci.Owner == gs.Active {
		power += ResourcePowerBonus * gs.Players[ci.Owner].Resources.AttachedTo(ci.ID)
	}
	return power
}

// CheckWinCondition marks the game over if a player has been defeated.
// Returns true if the game is over.
func (gs *GameState) CheckWinCondition() bool {
	if gs.Over {
		return true
	}
	d0, d1 := gs.Players[0].Defeated, gs.Players[1].Defeated
	switch {
	case d0 && d1:
		gs.Over = true
		gs.Winner = -1
		gs.Result = "Draw: both players defeated"
	case d0:
		gs.Over = true
		gs.Winner = 1
		gs.Result = "P2 wins: P1 defeated"
	case d1:
		gs.Over = true
		gs.Winner = 0
		gs.Result = "P1 wins: P2 defeated"
	}
	return gs.Over
}

// CheckInvariants verifies zone membership, zone counts and resource accounting.
// Any problem is a programming fault, reported as ErrInvariant.
func (gs *GameState) CheckInvariants() error {
	var problems []string
	seen := make(map[int]int)

	for pi, p := range gs.Players {
		if p == nil {
			problems = append(problems, fmt.Sprintf("player %d missing", pi))
			continue
		}
		check := func(ci *CardInstance, z ZoneType) {
			if ci == nil {
				problems = append(problems, fmt.Sprintf("P%d: nil card in %s", pi+1, z))
				return
			}
			seen[ci.ID]++
			if ci.Zone != z {
				problems = append(problems, fmt.Sprintf("P%d: %s recorded in %s but held in %s", pi+1, ci, ci.Zone, z))
			}
			if ci.Owner != pi {
				problems = append(problems, fmt.Sprintf("P%d: %s owned by P%d", pi+1, ci, ci.Owner+1))
			}
		}
		if p.Leader == nil {
			problems = append(problems, fmt.Sprintf("P%d: no leader", pi+1))
		} else {
			check(p.Leader, ZoneLeader)
		}
		if p.Stage != nil {
			check(p.Stage, ZoneStage)
		}
		for _, z := range []ZoneType{ZoneHand, ZoneCharacter, ZoneDeck, ZoneTrash, ZoneLife} {
			for _, ci := range *p.zone(z) {
				check(ci, z)
			}
		}
		if len(p.Characters) > CharacterAreaSize {
			problems = append(problems, fmt.Sprintf("P%d: %d characters in play", pi+1, len(p.Characters)))
		}
		if got, want := p.ZoneCardCount(), p.CardCount+1; got != want {
			problems = append(problems, fmt.Sprintf("P%d: %d cards across zones, expected %d", pi+1, got, want))
		}

		r := &p.Resources
		if r.Deck < 0 || r.Active < 0 || r.Rested < 0 {
			problems = append(problems, fmt.Sprintf("P%d: negative DON!! count %+v", pi+1, *r))
		}
		if total := r.Total(); total > MaxResourcePool || total+r.Deck != ResourceDeckSize {
			problems = append(problems, fmt.Sprintf("P%d: DON!! pool %d + deck %d != %d", pi+1, total, r.Deck, ResourceDeckSize))
		}
		for id, n := range r.Attached {
			if n <= 0 {
				problems = append(problems, fmt.Sprintf("P%d: %d DON!! attached to #%d", pi+1, n, id))
			}
			if p.InPlay(id) == nil {
				problems = append(problems, fmt.Sprintf("P%d: DON!! attached to #%d which is not in play", pi+1, id))
			}
		}
	}

	var dup []int
	for id, n := range seen {
		if n > 1 {
			dup = append(dup, id)
		}
	}
	sort.Ints(dup)
	for _, id := range dup {
		problems = append(problems, fmt.Sprintf("card #%d present in %d zones", id, seen[id]))
	}

	if b := gs.Battle; b != nil {
		if b.Defender != gs.Opponent(gs.Active) || gs.Players[b.Defender].InPlay(b.Target) == nil {
			problems = append(problems, fmt.Sprintf("battle target #%d not in play", b.Target))
		}
		if gs.Players[gs.Active].InPlay(b.Attacker) == nil {
			problems = append(problems, fmt.Sprintf("battle attacker #%d not in play", b.Attacker))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvariant, strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns a fully independent deep copy. Card definitions are shared because
// they are immutable.
func (gs *GameState) Clone() *GameState {
	cp := *gs
	cp.Players = [2]*Player{gs.Players[0].clone(), gs.Players[1].clone()}
	if gs.Battle != nil {
		cp.Battle = gs.Battle.clone()
	}
	return &cp
}

// Summary returns a multi-line description of the game for terminals and logs.
func (gs *GameState) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Game %s: Turn %d (%s), P%d to act\n", shortID(gs.ID), gs.Turn, gs.Phase, gs.Decider()+1)
	for i, p := range gs.Players {
		leader := "(none)"
		life := 0
		if p.Leader != nil {
			leader = p.Leader.DisplayString()
			life = p.Leader.Card.Life
		}
		fmt.Fprintf(&sb, "P%d  Leader: %s\n", i+1, leader)
		fmt.Fprintf(&sb, "    Life: %d/%d  Hand: %d  Deck: %d  Trash: %d\n", len(p.Life), life, len(p.Hand), len(p.Deck), len(p.Trash))
		fmt.Fprintf(&sb, "    DON!!: %d active / %d in play\n", p.Resources.Active, p.Resources.Total())
		var chars []string
		for _, c := range p.Characters {
			chars = append(chars, c.DisplayString())
		}
		if p.Stage != nil {
			chars = append(chars, "stage "+p.Stage.Card.Name)
		}
		fmt.Fprintf(&sb, "    Field: %s\n", strings.Join(chars, ", "))
	}
	if gs.Over {
		fmt.Fprintf(&sb, "Result: %s\n", gs.Result)
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
