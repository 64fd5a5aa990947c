package table

// nextStreetOrShowdown closes out the betting round just finished and
// decides what comes next: a walkover if only one seat is still in the
// hand, a showdown if the river is done, or the next street's deal.
func (t *Table) nextStreetOrShowdown() {
	remaining := t.remainingInHandSeats()
	if len(remaining) <= 1 {
		t.concludeHand(remaining)
		return
	}
	if t.Street == River {
		t.Street = Showdown
		t.concludeHand(remaining)
		return
	}
	t.advanceStreet()
}

// remainingInHandSeats returns seats still contesting the pot: active
// or all-in, i.e. not folded and not empty.
func (t *Table) remainingInHandSeats() []int {
	var out []int
	for i, p := range t.Seats {
		if p != nil && p.IsInHand() {
			out = append(out, i)
		}
	}
	return out
}

// advanceStreet resets betting for the next card(s) dealt, burning a
// card first the way a live deck would, then either offers the action
// to the first seat left of the button or, when everyone left is
// already all-in, keeps fast-forwarding to showdown without pausing
// for input nobody can give.
func (t *Table) advanceStreet() {
	for _, p := range t.Seats {
		if p != nil {
			p.ResetForNewRound()
		}
	}
	t.Betting.ResetForNewRound()

	switch t.Street {
	case Preflop:
		t.Street = Flop
		t.dealCommunity(3)
	case Flop:
		t.Street = Turn
		t.dealCommunity(1)
	case Turn:
		t.Street = River
		t.dealCommunity(1)
	}
	if t.HandID == "" {
		return // hand aborted mid-deal
	}

	t.emit(Event{Type: EventCommunityCards, Street: t.Street, Board: t.Board.String()})

	actionable := 0
	for _, seat := range t.remainingInHandSeats() {
		if t.Seats[seat].Status == StatusActive {
			actionable++
		}
	}
	if actionable <= 1 {
		t.ActiveSeat = -1
		t.nextStreetOrShowdown()
		return
	}

	first := t.nextActiveSeat(t.Button + 1)
	t.ActiveSeat = first
	t.armTurnTimer()
	t.emitActionOn()
}

// dealCommunity burns one card and deals n onto the board, the same
// sequence a dealer follows between streets. Running out of cards here
// is a dealing-invariant violation that voids the hand.
func (t *Table) dealCommunity(n int) {
	if err := t.Deck.Burn(); err != nil {
		t.abortHand(err)
		return
	}
	cards, err := t.Deck.Deal(n)
	if err != nil {
		t.abortHand(err)
		return
	}
	for _, c := range cards {
		t.Board.AddCard(c)
	}
}
