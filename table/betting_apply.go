package table

import "fmt"

// HandleAction applies a seat's submitted decision. It is the single
// entry point callers use to act on a hand; every validation the
// engine performs (turn order, legality, amount) happens here before
// any state changes. A panic past validation voids the hand and
// refunds every contribution rather than leaving the table wedged
// mid-street.
func (t *Table) HandleAction(seat int, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.abortHand(fmt.Errorf("panic applying %s from seat %d: %v", action, seat, r))
			err = newError(KindResource, ErrEngineFault, "hand aborted")
		}
	}()

	if t.HandID == "" {
		return newError(KindState, ErrHandNotInProgress, "")
	}
	if seat != t.ActiveSeat {
		return newError(KindState, ErrNotYourTurn, "seat %d, active seat is %d", seat, t.ActiveSeat)
	}
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	if !p.CanAct() {
		return newError(KindState, ErrInvalidAction, "seat %d is %s", seat, p.Status)
	}
	if err := t.validateAction(p, action); err != nil {
		return err
	}

	t.scheduler.Stop()
	t.applyActionToPlayer(p, action)
	t.logHandEntry(seat, action, "")
	t.emit(Event{Type: EventPlayerAction, Seat: seat, Action: action, Street: t.Street})
	t.advanceAfterAction(seat)
	return nil
}

func (t *Table) validateAction(p *Player, action Action) error {
	allowed := false
	for _, k := range t.Betting.ValidActions(p) {
		if k == action.Kind {
			allowed = true
			break
		}
	}
	if !allowed {
		return newError(KindValidation, ErrInvalidAction, "%s not legal for seat %d", action.Kind, p.Seat)
	}

	if action.Kind == ActionRaiseTo {
		maxTo := p.CurrentBet + p.Chips
		if action.Amount > maxTo {
			return newError(KindValidation, ErrInvalidAmount, "raise_to %d exceeds seat %d stack", action.Amount, p.Seat)
		}
		minTo := t.Betting.MinRaiseTo()
		if action.Amount < minTo && action.Amount < maxTo {
			return newError(KindValidation, ErrInvalidAmount, "raise_to %d below minimum %d", action.Amount, minTo)
		}
	}
	return nil
}

// applyActionToPlayer mutates player and betting-round state for one
// decision. Callers are expected to have already validated the action.
func (t *Table) applyActionToPlayer(p *Player, action Action) {
	p.HasActed = true

	switch action.Kind {
	case ActionFold:
		p.Status = StatusFolded

	case ActionCheck:
		// No chips move; nothing else to do.

	case ActionCall:
		owed := t.Betting.CurrentBet - p.CurrentBet
		if owed > p.Chips {
			owed = p.Chips
		}
		p.Chips -= owed
		p.CurrentBet += owed
		p.TotalBetThisHand += owed
		if p.Chips == 0 {
			p.Status = StatusAllIn
		}

	case ActionRaiseTo:
		delta := action.Amount - p.CurrentBet
		if delta > p.Chips {
			delta = p.Chips
		}
		p.Chips -= delta
		p.CurrentBet += delta
		p.TotalBetThisHand += delta

		if p.CurrentBet > t.Betting.CurrentBet {
			raiseSize := p.CurrentBet - t.Betting.CurrentBet
			fullRaise := raiseSize >= t.Betting.MinRaise
			t.Betting.CurrentBet = p.CurrentBet
			t.Betting.LastRaiser = p.Seat
			if fullRaise {
				// A full raise reopens action: everyone else still in
				// the hand must act on it again, even if they'd
				// already matched the prior bet level.
				t.Betting.MinRaise = raiseSize
				for _, other := range t.Seats {
					if other != nil && other.Seat != p.Seat && other.IsInHand() {
						other.HasActed = false
						other.Capped = false
					}
				}
			} else {
				// An incomplete all-in raise only happens because the
				// raiser is covering their whole stack; it bumps
				// CurrentBet but does not reopen action for seats that
				// already closed out at the prior level; they may
				// only call the new amount or fold, not re-raise.
				for _, other := range t.Seats {
					if other != nil && other.Seat != p.Seat && other.IsInHand() && other.HasActed {
						other.Capped = true
					}
				}
			}
		}
		if p.Chips == 0 {
			p.Status = StatusAllIn
		}
	}

	if t.Street == Preflop && p.Seat == t.bbSeat {
		t.Betting.BBActed = true
	}
}

// advanceAfterAction decides what happens next once a seat has acted:
// hand over to the next actor, or close out the street.
func (t *Table) advanceAfterAction(seat int) {
	if t.Betting.IsBettingComplete(t.seatedPlayers(), t.Street, t.bbSeat) {
		t.nextStreetOrShowdown()
		return
	}

	next := t.nextActiveSeat(seat + 1)
	if next == -1 {
		t.nextStreetOrShowdown()
		return
	}
	t.ActiveSeat = next
	t.armTurnTimer()
	t.emitActionOn()
}

// seatedPlayers returns every occupied seat, in seat order.
func (t *Table) seatedPlayers() []*Player {
	var out []*Player
	for _, p := range t.Seats {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
