package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/holdem-core/poker"
)

// concludeHand ends the current hand, awarding every pot and recording
// the result. remaining is every seat still in the hand (not folded);
// a single remaining seat wins uncontested without revealing cards.
func (t *Table) concludeHand(remaining []int) {
	t.scheduler.Stop()
	t.Pots = calculatePots(t.seatedPlayers())

	chipDeltas := make(map[int]int)
	var winners []WinnerRecord
	var reveals []ContenderRecord

	if len(remaining) == 1 {
		seat := remaining[0]
		total := 0
		for _, pot := range t.Pots {
			total += pot.Amount
		}
		t.Seats[seat].Chips += total
		chipDeltas[seat] = total
		winners = append(winners, WinnerRecord{Seat: seat, Name: t.Seats[seat].Name, Amount: total})
	} else {
		ranks := make(map[int]poker.HandRank, len(remaining))
		for _, seat := range remaining {
			ranks[seat] = poker.Evaluate(t.Seats[seat].HoleCards | t.Board)
		}
		for _, seat := range remaining {
			reveals = append(reveals, ContenderRecord{
				Seat:      seat,
				Name:      t.Seats[seat].Name,
				HoleCards: t.Seats[seat].HoleCards.String(),
				HandDesc:  ranks[seat].String(),
			})
		}

		for _, pot := range t.Pots {
			var best poker.HandRank
			var potWinners []int
			for _, seat := range pot.Eligible {
				rank, ok := ranks[seat]
				if !ok {
					continue
				}
				switch {
				case len(potWinners) == 0 || poker.CompareHands(rank, best) > 0:
					best = rank
					potWinners = []int{seat}
				case poker.CompareHands(rank, best) == 0:
					potWinners = append(potWinners, seat)
				}
			}
			if len(potWinners) == 0 {
				continue
			}
			for seat, amount := range distributePot(pot, potWinners, t.Button, len(t.Seats)) {
				t.Seats[seat].Chips += amount
				chipDeltas[seat] += amount
			}
		}

		for _, seat := range remaining {
			if amount := chipDeltas[seat]; amount > 0 {
				winners = append(winners, WinnerRecord{
					Seat:     seat,
					Name:     t.Seats[seat].Name,
					Amount:   amount,
					HandDesc: ranks[seat].String(),
				})
			}
		}
	}

	t.settleHand(remaining, winners, reveals, chipDeltas)
}

// settleHand updates per-player and table-wide bookkeeping once the
// pots have been awarded: records played/won counts, Elo, hand
// history, and fires the terminal events before queuing the next hand.
func (t *Table) settleHand(remaining []int, winners []WinnerRecord, reveals []ContenderRecord, chipDeltas map[int]int) {
	for _, p := range t.seatedPlayers() {
		if p.TotalBetThisHand <= 0 {
			continue
		}
		p.HandsPlayed++
		if chipDeltas[p.Seat] > 0 {
			p.HandsWon++
		}
	}

	// Rating moves only on an actual showdown, pairing every contender
	// against every other; folded seats keep their rating.
	ratings := make(map[int]float64)
	scores := make(map[int]float64)
	if len(remaining) > 1 {
		for _, seat := range remaining {
			ratings[seat] = t.elo[seat]
			if chipDeltas[seat] > 0 {
				scores[seat] = 1
			}
		}
	}
	if len(ratings) > 1 {
		updated := updateElo(EloConfig{KFactor: t.Config.EloKFactor, DefaultElo: t.Config.DefaultElo}, ratings, scores)
		for seat, rating := range updated {
			t.elo[seat] = rating
			if p := t.Seats[seat]; p != nil {
				p.Elo = rating
			}
		}
	}

	rec := HandRecord{
		HandID:         t.HandID,
		StartedAt:      t.handStarted,
		Button:         t.Button,
		SmallBlind:     t.Config.SmallBlind,
		BigBlind:       t.Config.BigBlind,
		Board:          t.Board.String(),
		FurthestStreet: t.Street,
		Actions:        t.handLog,
		Winners:        winners,
		Contenders:     reveals,
	}
	for _, p := range t.seatedPlayers() {
		if p.TotalBetThisHand > 0 {
			rec.Seats = append(rec.Seats, p.Seat)
		}
	}
	for _, pot := range t.Pots {
		rec.FinalPot += pot.Amount
	}
	t.History.Append(rec)
	if t.Stats != nil {
		t.Stats.HandCompleted(rec, chipDeltas)
	}

	t.emit(Event{Type: EventShowdown, Street: t.Street, Pots: t.Pots, Winners: winners, Reveals: reveals})
	t.emit(Event{Type: EventHandComplete, Winners: winners})
	t.emit(Event{Type: EventDealerNarration, Message: narrateResult(winners)})

	t.Logger.Info().Str("hand_id", t.HandID).Ints("winners", winnerSeats(winners)).Msg("hand complete")

	t.HandID = ""
	t.ActiveSeat = -1
	t.handLog = nil
	for i, p := range t.Seats {
		if p == nil {
			continue
		}
		if p.Leaving {
			t.freeSeat(i)
			continue
		}
		// Committed chips have all been paid out; hole cards are only
		// held between deal and end of hand.
		p.CurrentBet = 0
		p.TotalBetThisHand = 0
		p.HoleCards = 0
		p.HasActed = false
		if p.Chips == 0 && p.Status != StatusSittingOut {
			p.Status = StatusSittingOut
		}
	}

	if t.Config.ShowdownDelayMs > 0 {
		t.clock.AfterFunc(time.Duration(t.Config.ShowdownDelayMs)*time.Millisecond, func() {
			t.runDispatched(t.maybeStartHand)
		})
		return
	}
	t.maybeStartHand()
}

func winnerSeats(winners []WinnerRecord) []int {
	out := make([]int, len(winners))
	for i, w := range winners {
		out[i] = w.Seat
	}
	return out
}

// narrateResult builds the one-line dealer commentary pushed after a
// hand settles.
func narrateResult(winners []WinnerRecord) string {
	switch len(winners) {
	case 0:
		return "Hand complete."
	case 1:
		w := winners[0]
		if w.HandDesc == "" {
			return fmt.Sprintf("%s takes down %d uncontested.", w.Name, w.Amount)
		}
		return fmt.Sprintf("%s wins %d with %s.", w.Name, w.Amount, w.HandDesc)
	default:
		names := make([]string, len(winners))
		for i, w := range winners {
			names[i] = w.Name
		}
		return fmt.Sprintf("Split pot between %s.", strings.Join(names, " and "))
	}
}
