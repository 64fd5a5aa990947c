package table

// emitActionOn announces whose turn it is, carrying the pot and
// betting context the prompted seat needs to size a decision.
func (t *Table) emitActionOn() {
	seat := t.ActiveSeat
	if seat < 0 {
		return
	}
	p := t.Seats[seat]
	if p == nil {
		return
	}
	toCall := t.Betting.CurrentBet - p.CurrentBet
	if toCall < 0 {
		toCall = 0
	}
	t.emit(Event{
		Type:            EventActionOn,
		Seat:            seat,
		Street:          t.Street,
		Pot:             t.potTotal(),
		CurrentBetLevel: t.Betting.CurrentBet,
		PlayerBet:       p.CurrentBet,
		ToCall:          toCall,
		MinRaise:        t.Betting.MinRaise,
		TimeBankMs:      p.TimeBankMs,
	})
}

// armTurnTimer starts the action clock for whichever seat is currently
// up, using that seat's own remaining time bank so a cascade from a
// prior expiry carries forward correctly.
func (t *Table) armTurnTimer() {
	if t.ActiveSeat < 0 {
		return
	}
	p := t.Seats[t.ActiveSeat]
	if p == nil {
		return
	}
	t.scheduler.Start(t.HandID, t.Street, t.ActiveSeat, p.TimeBankMs)
}

// onTimeBankTick persists one second's worth of time-bank decrement
// against the seat that burned it and broadcasts the remaining amount.
// The bank is drawn down only after the primary turn timer has already
// expired, and a decrement already applied is never restored even if
// the seat then acts before the bank empties.
func (t *Table) onTimeBankTick(seat int, remainingMs int64) {
	if t.HandID == "" || seat != t.ActiveSeat {
		return
	}
	p := t.Seats[seat]
	if p == nil {
		return
	}
	if remainingMs < 0 {
		remainingMs = 0
	}
	p.TimeBankMs = remainingMs
	t.emit(Event{Type: EventTimeBankTick, Seat: seat, Street: t.Street, TimeBankMs: remainingMs})
}

// onTurnExpired is the TurnScheduler callback for a seat that ran out
// of time (and time bank, if any). The expiry is not an error: it is a
// synthesised fold applied through the same entry point a submitted
// fold would take, with full visibility in the log and push events.
func (t *Table) onTurnExpired(seat int) {
	if t.HandID == "" || seat != t.ActiveSeat {
		return
	}
	p := t.Seats[seat]
	if p == nil || !p.CanAct() {
		return
	}

	t.Logger.Info().Int("seat", seat).Str("hand_id", t.HandID).Msg("turn timer expired, folding")
	_ = t.HandleAction(seat, Fold())
}

// forceFold folds a seat out of band, for a disconnect or sit-out
// request rather than a submitted action. Turn order is left alone
// unless the folding seat was the one currently up, in which case play
// advances exactly as it would after a submitted fold.
func (t *Table) forceFold(seat int) {
	p := t.Seats[seat]
	if p == nil || !p.IsInHand() {
		return
	}

	wasActive := seat == t.ActiveSeat
	p.Status = StatusFolded
	p.HasActed = true
	t.logHandEntry(seat, Fold(), "")
	t.emit(Event{Type: EventPlayerAction, Seat: seat, Action: Fold(), Street: t.Street})

	if !wasActive {
		// Folding a seat out of band can still end the hand: if only
		// one player is left contesting, there is nothing to wait for.
		if remaining := t.remainingInHandSeats(); len(remaining) == 1 {
			t.scheduler.Stop()
			t.concludeHand(remaining)
		}
		return
	}
	t.scheduler.Stop()
	t.advanceAfterAction(seat)
}
