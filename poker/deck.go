package poker

import (
	"fmt"
	"math/rand"
)

// Deck represents a standard 52-card deck.
type Deck struct {
	cards [52]Card // Fixed size array
	next  int
	rng   *rand.Rand // Random source for deterministic shuffling
}

// NewDeck creates a new shuffled deck with an explicit RNG. Passing an
// *rand.Rand seeded deterministically reproduces the same shuffle,
// which is how table tests get scripted hands.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		next: 0,
		rng:  rng,
	}

	i := 0
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}

	d.Shuffle()
	return d
}

// Shuffle shuffles the deck in place using Fisher-Yates and rewinds
// the deal cursor to the top.
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal deals n cards from the top of the deck. It returns an error
// instead of a short slice if fewer than n cards remain.
func (d *Deck) Deal(n int) ([]Card, error) {
	if d.next+n > len(d.cards) {
		return nil, fmt.Errorf("poker: deck exhausted, requested %d with %d remaining", n, d.CardsRemaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// DealOne deals a single card from the deck.
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return 0, err
	}
	return cards[0], nil
}

// Burn removes exactly one card from the deck with no observable
// output, per the standard dealing convention ahead of the flop, turn
// and river.
func (d *Deck) Burn() error {
	_, err := d.Deal(1)
	return err
}

// Reset restores the deck to a full 52 cards in canonical order and
// reshuffles it.
func (d *Deck) Reset() {
	i := 0
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	d.Shuffle()
}

// CardsRemaining returns the number of cards left to deal.
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}
