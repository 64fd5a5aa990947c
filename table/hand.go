package table

import (
	"github.com/lox/holdem-core/poker"
)

// startHand deals a new hand into the table once maybeStartHand has
// decided enough seats are eligible. It owns the entire preflop setup:
// button rotation, deck creation, blind posting, hole cards and first
// actor.
func (t *Table) startHand() {
	seats := t.eligibleSeats()
	if len(seats) < t.Config.MinPlayers {
		return
	}

	// Every seated player's per-hand state resets, not just the ones
	// being dealt in: a seat that busted last hand must not carry a
	// stale contribution into this one.
	for _, p := range t.seatedPlayers() {
		p.ResetForNewHand()
	}
	for _, seat := range seats {
		t.Seats[seat].Status = StatusActive
	}

	t.Button = nextButton(t.Button, seats)
	t.HandNum++
	t.HandID = generateHandID(t.rng)
	t.Street = Preflop
	t.Board = 0
	t.Deck = poker.NewDeck(t.rng)
	t.Betting = NewBettingRound(t.Config.BigBlind)
	t.Pots = nil
	t.handStarted = t.clock.Now()
	t.handLog = nil

	t.Logger.Info().Str("hand_id", t.HandID).Int("button", t.Button).Msg("hand started")

	t.postBlinds(seats)
	t.dealHoleCards(seats)
	if t.HandID == "" {
		return // hand aborted mid-deal
	}

	if len(seats) == 2 {
		// Heads-up the button posts the small blind and acts first.
		t.ActiveSeat = t.nextActiveSeat(t.Button)
	} else {
		// First to act is the seat after the big blind, found by
		// logical position among eligible seats so a sparsely seated
		// table (gaps from empty or sat-out seats) still gets the
		// right actor rather than assuming seats are contiguous.
		buttonIdx := indexOf(seats, t.Button)
		firstRawSeat := seats[(buttonIdx+3)%len(seats)]
		t.ActiveSeat = t.nextActiveSeat(firstRawSeat)
	}

	// Blinds can put a seat all-in before anyone acts; if nobody is
	// left to make a decision the hand deals straight through.
	if t.ActiveSeat == -1 || t.Betting.IsBettingComplete(t.seatedPlayers(), t.Street, t.bbSeat) {
		t.ActiveSeat = -1
		t.nextStreetOrShowdown()
		return
	}
	t.armTurnTimer()
	t.emitActionOn()
}

// nextButton advances the button to the next eligible seat clockwise,
// picking the first eligible seat if no button has been set yet.
func nextButton(current int, seats []int) int {
	if current < 0 {
		return seats[0]
	}
	for _, seat := range seats {
		if seat > current {
			return seat
		}
	}
	return seats[0]
}

func (t *Table) blindSeats(seats []int) (sb, bb int) {
	n := len(seats)
	buttonIdx := indexOf(seats, t.Button)
	if n == 2 {
		return seats[buttonIdx], seats[(buttonIdx+1)%n]
	}
	return seats[(buttonIdx+1)%n], seats[(buttonIdx+2)%n]
}

func indexOf(seats []int, seat int) int {
	for i, s := range seats {
		if s == seat {
			return i
		}
	}
	return 0
}

func (t *Table) postBlinds(seats []int) {
	t.sbSeat, t.bbSeat = t.blindSeats(seats)
	sb := t.Seats[t.sbSeat]
	bb := t.Seats[t.bbSeat]

	sbAmount := min(t.Config.SmallBlind, sb.Chips)
	sb.Chips -= sbAmount
	sb.CurrentBet = sbAmount
	sb.TotalBetThisHand = sbAmount
	if sb.Chips == 0 {
		sb.Status = StatusAllIn
	}

	bbAmount := min(t.Config.BigBlind, bb.Chips)
	bb.Chips -= bbAmount
	bb.CurrentBet = bbAmount
	bb.TotalBetThisHand = bbAmount
	if bb.Chips == 0 {
		bb.Status = StatusAllIn
	}

	// The level to match is a full big blind even when the big blind
	// seat could only post short.
	t.Betting.CurrentBet = t.Config.BigBlind

	t.logHandEntry(t.sbSeat, RaiseTo(sbAmount), "small blind")
	t.logHandEntry(t.bbSeat, RaiseTo(bbAmount), "big blind")
	t.emit(Event{Type: EventBlindsPosted, Seat: t.sbSeat})
	t.emit(Event{Type: EventBlindsPosted, Seat: t.bbSeat})
}

func (t *Table) dealHoleCards(seats []int) {
	for _, seat := range seats {
		cards, err := t.Deck.Deal(2)
		if err != nil {
			t.abortHand(err)
			return
		}
		t.Seats[seat].HoleCards = poker.NewHand(cards...)
	}
	t.emit(Event{Type: EventCardsDealt, Street: t.Street})
}

// abortHand is the terminal path for a dealing fault or a panic inside
// hand logic: every seat's committed chips go back to its stack, the
// table returns to waiting, and a terminal event tells clients the
// hand is void. Chip conservation holds through the refund. The next
// hand is not rescheduled automatically; an abort implies a bug, so
// dealing resumes only on the next seating change.
func (t *Table) abortHand(reason error) {
	t.scheduler.Stop()
	t.Logger.Error().Err(reason).Str("hand_id", t.HandID).Msg("hand aborted, refunding contributions")

	for i, p := range t.Seats {
		if p == nil {
			continue
		}
		p.Chips += p.TotalBetThisHand
		p.TotalBetThisHand = 0
		p.CurrentBet = 0
		p.HoleCards = 0
		p.HasActed = false
		p.Capped = false
		if p.Leaving {
			t.freeSeat(i)
			continue
		}
		if p.Status != StatusSittingOut {
			p.Status = StatusWaiting
		}
	}

	t.emit(Event{Type: EventHandAborted, Message: reason.Error()})

	t.HandID = ""
	t.ActiveSeat = -1
	t.Board = 0
	t.Pots = nil
	t.handLog = nil
}

// logHandEntry appends one entry to the hand's chronological action
// log. tag marks forced bets ("small blind", "big blind") that do not
// count as the seat having acted.
func (t *Table) logHandEntry(seat int, action Action, tag string) {
	name := ""
	if p := t.Seats[seat]; p != nil {
		name = p.Name
	}
	t.handLog = append(t.handLog, HistoryAction{
		Seat:      seat,
		Name:      name,
		Action:    action,
		Tag:       tag,
		Street:    t.Street,
		PotAfter:  t.potTotal(),
		Timestamp: t.clock.Now(),
	})
}

func (t *Table) potTotal() int {
	total := 0
	for _, p := range t.Seats {
		if p != nil {
			total += p.TotalBetThisHand
		}
	}
	return total
}

func (t *Table) nextActiveSeat(from int) int {
	n := len(t.Seats)
	for i := 0; i < n; i++ {
		seat := (from + i) % n
		p := t.Seats[seat]
		if p != nil && p.CanAct() {
			return seat
		}
	}
	return -1
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
