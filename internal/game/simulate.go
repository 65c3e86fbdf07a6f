package game

// silent is the Rules used for look-ahead: no events, no logging, triggers declined.
var silent = &Rules{}

// Simulate returns the state that results from applying a to a deep copy of gs.
// gs itself is never modified. A battle opened by a is resolved immediately with
// policy answering for the defender (nil means no block and no counters).
func Simulate(gs *GameState, a Action, policy DefensePolicy) (*GameState, error) {
	next := gs.Clone()
	if err := silent.Execute(next, a, policy); err != nil {
		return nil, err
	}
	return next, nil
}
