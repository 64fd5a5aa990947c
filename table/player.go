package table

import "github.com/lox/holdem-core/poker"

// Status is a seat's participation state within the current hand.
type Status int

const (
	StatusEmpty Status = iota
	StatusWaiting
	StatusActive
	StatusFolded
	StatusAllIn
	StatusSittingOut
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWaiting:
		return "waiting"
	case StatusActive:
		return "active"
	case StatusFolded:
		return "folded"
	case StatusAllIn:
		return "all-in"
	case StatusSittingOut:
		return "sitting-out"
	default:
		return "unknown"
	}
}

// Player is a seat record: everything the table needs to know about
// the occupant of one seat, across and within hands.
type Player struct {
	Seat   int
	Token  string // session token bound to this seat, opaque to table
	Name   string
	Chips  int
	Status Status

	HoleCards        poker.Hand
	CurrentBet       int // contributed this betting round
	TotalBetThisHand int // contributed this hand, across all rounds
	HasActed         bool

	// Capped is set when an incomplete all-in raise bumps the bet level
	// after this seat already acted this round: it may still call the
	// new level or fold, but may not re-raise until a full raise
	// reopens action again.
	Capped bool

	// Bot marks a house-supplied filler seat rather than a remote
	// client; tables configured with RequireHumanSeat won't start a
	// hand on bots alone.
	Bot bool

	Disconnected bool
	// Leaving marks a seat whose occupant left mid-hand: their chips
	// stay in the pot layers they reached, and the seat is freed once
	// the hand settles.
	Leaving    bool
	TimeBankMs int64

	Elo         float64
	HandsPlayed int
	HandsWon    int
}

// NewPlayer seats a fresh occupant with a starting stack.
func NewPlayer(seat int, token, name string, chips int, startingElo float64) *Player {
	return &Player{
		Seat:   seat,
		Token:  token,
		Name:   name,
		Chips:  chips,
		Status: StatusWaiting,
		Elo:    startingElo,
	}
}

// IsInHand reports whether the seat is still contesting the pot:
// neither folded nor vacated, win via showdown or default still
// possible.
func (p *Player) IsInHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}

// CanAct reports whether the seat can be offered an action this
// street: in the hand and not already all-in.
func (p *Player) CanAct() bool {
	return p.Status == StatusActive
}

// ResetForNewHand clears per-hand state, leaving chips and identity
// untouched. A sat-out seat stays sitting out through the reset.
func (p *Player) ResetForNewHand() {
	p.HoleCards = 0
	p.CurrentBet = 0
	p.TotalBetThisHand = 0
	p.HasActed = false
	if p.Status != StatusSittingOut && p.Status != StatusEmpty {
		p.Status = StatusWaiting
	}
}

// ResetForNewRound clears per-street betting state ahead of the next
// round of action.
func (p *Player) ResetForNewRound() {
	p.CurrentBet = 0
	p.HasActed = false
	p.Capped = false
}
