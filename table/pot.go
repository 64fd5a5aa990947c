package table

import (
	"sort"
	"strconv"
)

// Pot is one layer of the pot: a main pot or a side pot created by an
// all-in. Eligible lists the seats that can win this layer.
type Pot struct {
	Label    string
	Amount   int
	Eligible []int
}

// calculatePots builds the layered main/side pot structure from each
// player's total contribution this hand. Contributions at or below an
// all-in amount form one layer shared by everyone who contributed that
// much; anything above it forms the next layer restricted to players
// who put in more. Folded players still contribute their chips to
// every layer their money reached, but are never eligible to win.
func calculatePots(players []*Player) []Pot {
	levels := contributionLevels(players)
	if len(levels) == 0 {
		return nil
	}

	var pots []Pot
	previous := 0
	for _, level := range levels {
		amount := 0
		var eligible []int
		for _, p := range players {
			contribution := p.TotalBetThisHand - previous
			if contribution <= 0 {
				continue
			}
			if contribution > level-previous {
				contribution = level - previous
			}
			amount += contribution
			if p.TotalBetThisHand >= level && p.IsInHand() {
				eligible = append(eligible, p.Seat)
			}
		}
		if amount > 0 {
			if len(eligible) == 0 && len(pots) > 0 {
				// A layer reached only by folded contributors (a
				// mid-hand departure can leave one) has nobody left
				// to win it; it rolls into the layer below rather
				// than leaking chips.
				pots[len(pots)-1].Amount += amount
			} else {
				pots = append(pots, Pot{Amount: amount, Eligible: eligible})
			}
		}
		previous = level
	}

	labelPots(pots)
	return pots
}

// contributionLevels returns the distinct contribution amounts a pot
// boundary can fall at: every all-in total, plus the largest
// contribution of all (so chips above the final all-in still form a
// pot layer).
func contributionLevels(players []*Player) []int {
	seen := map[int]bool{}
	max := 0
	for _, p := range players {
		if p.TotalBetThisHand > max {
			max = p.TotalBetThisHand
		}
		if p.Status == StatusAllIn && p.TotalBetThisHand > 0 {
			seen[p.TotalBetThisHand] = true
		}
	}
	if max > 0 {
		seen[max] = true
	}

	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func labelPots(pots []Pot) {
	for i := range pots {
		if i == 0 {
			pots[i].Label = "Main Pot"
		} else {
			pots[i].Label = sidePotLabel(i)
		}
	}
}

func sidePotLabel(n int) string {
	return "Side Pot " + strconv.Itoa(n)
}

// distributePot splits a pot among its winners, assigning any
// remainder one chip at a time to the winners closest to the button
// in clockwise order, per standard odd-chip tie-break rules.
func distributePot(pot Pot, winners []int, button, maxSeats int) map[int]int {
	award := make(map[int]int, len(winners))
	if len(winners) == 0 {
		return award
	}

	share := pot.Amount / len(winners)
	remainder := pot.Amount % len(winners)

	ordered := make([]int, len(winners))
	copy(ordered, winners)
	sort.Slice(ordered, func(i, j int) bool {
		return clockwiseDistance(button, ordered[i], maxSeats) < clockwiseDistance(button, ordered[j], maxSeats)
	})

	for _, seat := range winners {
		award[seat] = share
	}
	for i := 0; i < remainder; i++ {
		award[ordered[i%len(ordered)]]++
	}
	return award
}

// clockwiseDistance returns how many seats clockwise from the button
// a seat sits, in [1, maxSeats].
func clockwiseDistance(button, seat, maxSeats int) int {
	d := (seat - button + maxSeats) % maxSeats
	if d == 0 {
		d = maxSeats
	}
	return d
}
