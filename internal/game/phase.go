package game

import "github.com/peterkuimelis/grandline/internal/log"

// advance performs one phase transition:
//
//	SETUP → REFRESH (turn 1) → DRAW → RESOURCE → MAIN → END → opponent's REFRESH
//
// Entering REFRESH and DRAW applies their forced effects.
func (x *executor) advance() {
	gs := x.gs
	if gs.Over {
		return
	}
	next := gs.Phase.Next()
	switch next {
	case PhaseRefresh:
		if gs.Phase == PhaseSetup {
			gs.Turn = 1
		} else {
			gs.Active = gs.Opponent(gs.Active)
			gs.Turn++
		}
		x.beginTurn()
	case PhaseDraw:
		x.enter(next)
		x.drawPhase()
	case PhaseEnd:
		x.enter(next)
		x.endPhase()
	default:
		x.enter(next)
	}
}

// passPhase leaves the current phase and runs the forced phases that follow
// until the next decision point: a MAIN phase, or the end of the game.
func (x *executor) passPhase() {
	x.advance()
	for !x.gs.Over && x.gs.Phase != PhaseMain && x.err == nil {
		x.advance()
	}
}

func (x *executor) enter(phase Phase) {
	x.gs.Phase = phase
	x.log(log.NewPhaseChangeEvent(x.gs.Turn, phase.String(), x.gs.Active))
}

func (x *executor) beginTurn() {
	gs := x.gs
	gs.Phase = PhaseRefresh
	x.log(log.NewTurnEvent(gs.Turn, gs.Active))
	x.refreshPhase()
}

// refreshPhase readies the turn player's cards and DON!!.
func (x *executor) refreshPhase() {
	gs := x.gs
	p := gs.CurrentPlayer()

	detached, gained := p.Resources.Refresh()
	for _, ci := range p.inPlay() {
		ci.Rested = false
	}
	if p.Stage != nil {
		p.Stage.Rested = false
	}
	clear(p.PlayedThisTurn)

	x.log(log.NewRefreshEvent(gs.Turn, x.phase(), gs.Active, detached))
	if gained > 0 {
		x.log(log.NewResourceGainEvent(gs.Turn, x.phase(), gs.Active, gained, p.Resources.Total()))
	}
}

// drawPhase draws one card. The starting player skips it on turn 1. Drawing from
// an empty deck loses the game.
func (x *executor) drawPhase() {
	gs := x.gs
	if gs.Turn == 1 {
		return
	}
	p := gs.CurrentPlayer()
	card := p.DrawCard()
	if card == nil {
		x.log(log.NewDeckOutEvent(gs.Turn, x.phase(), gs.Active))
		p.Defeated = true
		x.log(log.NewDefeatEvent(gs.Turn, x.phase(), gs.Active))
		x.checkWin("deck out")
		return
	}
	x.log(log.NewDrawEvent(gs.Turn, x.phase(), gs.Active, card.Card.Name))
}

func (x *executor) endPhase() {
	x.gs.CurrentPlayer().FirstTurn = false
}
