package table

// PublicSeat is one seat's externally visible state: everything except
// hole cards, which only the occupant's own private view carries.
type PublicSeat struct {
	Seat             int
	Name             string
	Chips            int
	Status           Status
	CurrentBet       int
	TotalBetThisHand int
	HasCards         bool
}

// PublicState is the shape broadcast to observers and embedded in a
// seated player's private view: everything about the table except any
// hole cards.
type PublicState struct {
	TableID         string
	HandID          string
	HandNum         int
	Street          Street
	Board           string
	Pot             int
	Pots            []Pot
	Button          int
	ActiveSeat      int
	CurrentBetLevel int
	MinRaise        int
	Seats           []PublicSeat
}

// PrivateState is the view returned to a specific seated player: the
// public state plus that player's own hole cards.
type PrivateState struct {
	PublicState
	Seat      int
	HoleCards string
}

// ToPublicJSON builds the no-hole-cards view shared by every observer
// of the table, regardless of whether they occupy a seat.
func (t *Table) ToPublicJSON() PublicState {
	state := PublicState{
		TableID:    t.ID,
		HandID:     t.HandID,
		HandNum:    t.HandNum,
		Street:     t.Street,
		Board:      t.Board.String(),
		Button:     t.Button,
		ActiveSeat: t.ActiveSeat,
		Pots:       t.Pots,
	}
	if t.Betting != nil {
		state.CurrentBetLevel = t.Betting.CurrentBet
		state.MinRaise = t.Betting.MinRaise
	}
	for _, p := range t.Seats {
		if p == nil {
			continue
		}
		state.Pot += p.TotalBetThisHand
		state.Seats = append(state.Seats, PublicSeat{
			Seat:             p.Seat,
			Name:             p.Name,
			Chips:            p.Chips,
			Status:           p.Status,
			CurrentBet:       p.CurrentBet,
			TotalBetThisHand: p.TotalBetThisHand,
			HasCards:         p.HoleCards != 0,
		})
	}
	return state
}

// GetStateForPlayer returns the given token's seated view: the public
// state plus that seat's own hole cards, per the table's public
// contract. Fails with ErrUnknownPlayer if the token holds no seat.
func (t *Table) GetStateForPlayer(token string) (PrivateState, error) {
	for _, p := range t.Seats {
		if p != nil && p.Token == token {
			return PrivateState{
				PublicState: t.ToPublicJSON(),
				Seat:        p.Seat,
				HoleCards:   p.HoleCards.String(),
			}, nil
		}
	}
	return PrivateState{}, newError(KindRouting, ErrUnknownPlayer, "token not seated at this table")
}

// RecentHands returns up to n of the most recently completed hands.
func (t *Table) RecentHands(n int) []HandRecord {
	return t.History.Recent(n)
}

// SeatForToken resolves a session token to its seat index, for callers
// (the registry) that need to translate a token into the seat-indexed
// operations below GetStateForPlayer.
func (t *Table) SeatForToken(token string) (int, error) {
	for _, p := range t.Seats {
		if p != nil && p.Token == token {
			return p.Seat, nil
		}
	}
	return 0, newError(KindRouting, ErrUnknownPlayer, "token not seated at this table")
}

// HandNumber returns the monotonic count of hands this table has
// started.
func (t *Table) HandNumber() int {
	return t.HandNum
}

// OpenSeats reports how many seats are currently unoccupied.
func (t *Table) OpenSeats() int {
	n := 0
	for _, p := range t.Seats {
		if p == nil {
			n++
		}
	}
	return n
}
