package table

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MinPlayers:         2,
		MaxPlayers:         9,
		SmallBlind:         1,
		BigBlind:           2,
		MinBuyIn:           40,
		MaxBuyIn:           400,
		TurnTimerMs:        15_000,
		TimeBankSeconds:    30,
		HandStartDelayMs:   0,
		ShowdownDelayMs:    2_000,
		SitOutAutoRemoveMs: 600_000,
		MaxHandHistory:     10,
		EloKFactor:         32,
		DefaultElo:         1000,
	}
}

func newTestTable(t *testing.T, cfg Config) (*Table, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)
	tb := New("t1", cfg, rand.New(rand.NewSource(1)), mock, zerolog.Nop(), nil, func(Event) {})
	return tb, mock
}

func totalChips(tb *Table) int {
	total := 0
	for _, p := range tb.Seats {
		if p != nil {
			total += p.Chips + p.TotalBetThisHand
		}
	}
	return total
}

// Heads-up preflop fold: the big blind collects both blinds.
func TestHeadsUpPreflopFold(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	seatA, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	seatB, err := tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	require.Equal(t, 1, tb.HandNumber())
	require.NotEmpty(t, tb.HandID)

	// Heads-up: button is the small blind and acts first preflop.
	sbSeat := tb.ActiveSeat
	require.True(t, sbSeat == seatA || sbSeat == seatB)

	require.NoError(t, tb.HandleAction(sbSeat, Fold()))

	bbSeat := seatA
	if sbSeat == seatA {
		bbSeat = seatB
	}

	assert.Equal(t, "", tb.HandID, "hand should be over")
	assert.Equal(t, 201, tb.Seats[bbSeat].Chips)
	assert.Equal(t, 199, tb.Seats[sbSeat].Chips)
	assert.Equal(t, 400, totalChips(tb))
}

// A full hand with no raises runs to showdown and
// conserves chips regardless of who wins.
func TestFullStreetNoRaiseReachesShowdown(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	seatA, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	seatB, err := tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	sbSeat := tb.ActiveSeat
	bbSeat := seatA
	if sbSeat == seatA {
		bbSeat = seatB
	}

	// Preflop: SB calls the extra chip, BB checks back the option.
	require.NoError(t, tb.HandleAction(sbSeat, Call()))
	require.NoError(t, tb.HandleAction(bbSeat, Check()))
	require.Equal(t, Flop, tb.Street)

	for _, street := range []Street{Flop, Turn, River} {
		require.Equal(t, street, tb.Street)
		first := tb.ActiveSeat
		second := seatA
		if first == seatA {
			second = seatB
		}
		require.NoError(t, tb.HandleAction(first, Check()))
		if tb.HandID == "" {
			break
		}
		require.NoError(t, tb.HandleAction(second, Check()))
	}

	assert.Equal(t, "", tb.HandID)
	assert.Equal(t, 400, totalChips(tb))
	assert.Equal(t, 400, tb.Seats[seatA].Chips+tb.Seats[seatB].Chips)
}

// A three-way all-in preflop builds a main pot and two side pots with
// layer-exact amounts and eligibility.
func TestThreeWaySidePots(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 3
	tb, _ := newTestTable(t, cfg)

	seatA, err := tb.Join("a", "A", 50)
	require.NoError(t, err)
	seatB, err := tb.Join("b", "B", 100)
	require.NoError(t, err)
	seatC, err := tb.Join("c", "C", 200)
	require.NoError(t, err)

	// Everyone shoves preflop in turn order, starting with the first
	// seat to act; acting order doesn't matter for the pot math.
	for i := 0; i < 3; i++ {
		seat := tb.ActiveSeat
		p := tb.Seats[seat]
		require.NoError(t, tb.HandleAction(seat, RaiseTo(p.Chips+p.CurrentBet)))
	}

	require.Equal(t, "", tb.HandID, "hand should resolve once everyone is all-in")
	assert.Equal(t, 350, totalChips(tb))

	_ = seatA
	_ = seatB
	_ = seatC
}

// calculatePots directly, isolating the pot-layering math from full
// hand play: A=50, B=100, C=200 all-in.
func TestCalculatePotsThreeWay(t *testing.T) {
	a := NewPlayer(0, "a", "A", 0, 1000)
	a.Status = StatusAllIn
	a.TotalBetThisHand = 50

	b := NewPlayer(1, "b", "B", 0, 1000)
	b.Status = StatusAllIn
	b.TotalBetThisHand = 100

	c := NewPlayer(2, "c", "C", 0, 1000)
	c.Status = StatusAllIn
	c.TotalBetThisHand = 200

	pots := calculatePots([]*Player{a, b, c})
	require.Len(t, pots, 3)

	assert.Equal(t, "Main Pot", pots[0].Label)
	assert.Equal(t, 150, pots[0].Amount)
	assert.ElementsMatch(t, []int{0, 1, 2}, pots[0].Eligible)

	assert.Equal(t, 100, pots[1].Amount)
	assert.ElementsMatch(t, []int{1, 2}, pots[1].Eligible)

	assert.Equal(t, 100, pots[2].Amount)
	assert.ElementsMatch(t, []int{2}, pots[2].Eligible)

	sum := 0
	for _, pot := range pots {
		sum += pot.Amount
	}
	assert.Equal(t, 350, sum)
}

// Odd-chip distribution goes to the winner closest to
// the left of the button.
func TestOddChipDistribution(t *testing.T) {
	pot := Pot{Amount: 7, Label: "Main Pot"}
	award := distributePot(pot, []int{3, 6}, 1, 9)

	assert.Equal(t, 4, award[3])
	assert.Equal(t, 3, award[6])
	assert.Equal(t, 7, award[3]+award[6])
}

// An incomplete all-in raise bumps the bet level but
// does not reopen action for a seat that already matched the prior
// level; that seat may only call or fold.
func TestIncompleteAllInDoesNotReopenAction(t *testing.T) {
	br := NewBettingRound(2)
	br.CurrentBet = 10
	br.MinRaise = 8

	y := NewPlayer(1, "y", "Y", 100, 1000)
	y.CurrentBet = 10
	y.HasActed = true

	x := NewPlayer(0, "x", "X", 14, 1000)
	x.CurrentBet = 0

	// X shoves for 14 total, an incomplete raise over the 10 level.
	delta := 14 - x.CurrentBet
	x.Chips -= delta
	x.CurrentBet += delta
	raiseSize := x.CurrentBet - br.CurrentBet
	if raiseSize >= br.MinRaise {
		br.MinRaise = raiseSize
	} else if y.HasActed {
		// As applyActionToPlayer does: an incomplete raise caps every
		// seat that already acted at the prior level.
		y.Capped = true
	}
	br.CurrentBet = x.CurrentBet

	assert.Equal(t, 14, br.CurrentBet)
	assert.Equal(t, 8, br.MinRaise, "an incomplete all-in raise does not lower or reopen minRaise")

	actions := br.ValidActions(y)
	assert.Contains(t, actions, ActionCall)
	assert.NotContains(t, actions, ActionRaiseTo, "Y already acted at the prior level and cannot re-raise off an incomplete all-in")
}

// A turn timeout burns into the time bank, and an action
// taken mid-countdown keeps whatever decrement already landed.
func TestTurnTimeoutConsumesTimeBank(t *testing.T) {
	cfg := testConfig()
	cfg.TurnTimerMs = 15_000
	cfg.TimeBankSeconds = 5
	tb, mock := newTestTable(t, cfg)

	seatA, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	_, err = tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	active := tb.ActiveSeat
	require.Equal(t, int64(5000), tb.Seats[active].TimeBankMs)

	ctx := t.Context()
	mock.Advance(15 * time.Second).MustWait(ctx)
	for i := 0; i < 3; i++ {
		mock.Advance(time.Second).MustWait(ctx)
	}

	require.NoError(t, tb.HandleAction(active, Call()))
	// Three seconds of the bank burned before the call landed; the
	// decrement is retained, never regenerated within the session.
	assert.Equal(t, int64(2000), tb.Seats[active].TimeBankMs)
	_ = seatA
}

// Played through the full table: an all-in for less than a full
// raise bumps the level without reopening action for a seat that
// already closed out at the prior level.
func TestIncompleteAllInRaiseThroughTable(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 3
	tb, _ := newTestTable(t, cfg)

	seatX, err := tb.Join("x", "X", 200)
	require.NoError(t, err)
	seatShort, err := tb.Join("short", "Short", 40)
	require.NoError(t, err)
	seatY, err := tb.Join("y", "Y", 200)
	require.NoError(t, err)

	// Button seat 0 acts first and raises to 10 (increment 8).
	require.Equal(t, seatX, tb.ActiveSeat)
	require.NoError(t, tb.HandleAction(seatX, RaiseTo(10)))
	require.Equal(t, 8, tb.Betting.MinRaise)

	// Shrink the small blind's stack so its shove lands at 14 total,
	// an increment of 4 when the minimum raise would need 18.
	p := tb.Seats[seatShort]
	p.Chips = 13 // 1 already posted as the small blind
	require.Equal(t, seatShort, tb.ActiveSeat)
	require.NoError(t, tb.HandleAction(seatShort, RaiseTo(14)))

	assert.Equal(t, 14, tb.Betting.CurrentBet)
	assert.Equal(t, 8, tb.Betting.MinRaise, "an incomplete all-in must not move the minimum raise")
	assert.Equal(t, StatusAllIn, p.Status)

	// The big blind never acted, so it still holds every option.
	require.Equal(t, seatY, tb.ActiveSeat)
	require.NoError(t, tb.HandleAction(seatY, Call()))

	// X already acted at the 10 level: only call or fold now.
	require.Equal(t, seatX, tb.ActiveSeat)
	err = tb.HandleAction(seatX, RaiseTo(22))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAction)

	require.NoError(t, tb.HandleAction(seatX, Call()))
	assert.Equal(t, Flop, tb.Street)
}

func TestJoinBuyInBounds(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	_, err := tb.Join("low", "Low", 39)
	require.ErrorIs(t, err, ErrBuyInOutOfRange)
	_, err = tb.Join("high", "High", 401)
	require.ErrorIs(t, err, ErrBuyInOutOfRange)

	_, err = tb.Join("minimum", "Minimum", 40)
	require.NoError(t, err)
	_, err = tb.Join("maximum", "Maximum", 400)
	require.NoError(t, err)
}

func TestActionOutOfTurnRejected(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	_, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	_, err = tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	notActive := 1 - tb.ActiveSeat
	err = tb.HandleAction(notActive, Fold())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestActionWithoutHandRejected(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	seat, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)

	err = tb.HandleAction(seat, Check())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandNotInProgress)
}

// Leaving mid-hand folds the seat but its committed chips stay in the
// pot; the seat itself is freed once the hand settles.
func TestLeaveMidHandKeepsChipsInPot(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	seatA, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	seatB, err := tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	sbSeat := tb.ActiveSeat
	bbSeat := seatA + seatB - sbSeat

	require.NoError(t, tb.HandleAction(sbSeat, RaiseTo(10)))
	require.NoError(t, tb.HandleAction(bbSeat, Call()))
	require.Equal(t, Flop, tb.Street)

	require.NoError(t, tb.Leave(sbSeat))

	assert.Equal(t, "", tb.HandID, "heads-up departure should end the hand")
	assert.Nil(t, tb.Seats[sbSeat], "seat frees once the hand settles")
	assert.Equal(t, 210, tb.Seats[bbSeat].Chips, "winner collects the leaver's committed chips")
}

func TestSitOutAutoRemoveAfterIdleTimeout(t *testing.T) {
	cfg := testConfig()
	tb, mock := newTestTable(t, cfg)

	seat, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	require.NoError(t, tb.SetSitOut(seat))

	mock.Advance(time.Duration(cfg.SitOutAutoRemoveMs) * time.Millisecond).MustWait(t.Context())
	assert.Nil(t, tb.Seats[seat], "ten idle minutes sitting out frees the seat")
}

func TestReturnFromSitOutCancelsAutoRemove(t *testing.T) {
	cfg := testConfig()
	tb, mock := newTestTable(t, cfg)

	seat, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	require.NoError(t, tb.SetSitOut(seat))
	require.NoError(t, tb.ReturnFromSitOut(seat))

	mock.Advance(time.Duration(cfg.SitOutAutoRemoveMs) * time.Millisecond).MustWait(t.Context())
	assert.NotNil(t, tb.Seats[seat])
	assert.Equal(t, StatusWaiting, tb.Seats[seat].Status)
}

// A table of nothing but bots doesn't deal to itself when configured
// to require a human seat.
func TestRequireHumanSeatHoldsHandsForBots(t *testing.T) {
	cfg := testConfig()
	cfg.RequireHumanSeat = true
	tb, _ := newTestTable(t, cfg)

	_, err := tb.JoinBot("bot1", "Bot One", 200)
	require.NoError(t, err)
	_, err = tb.JoinBot("bot2", "Bot Two", 200)
	require.NoError(t, err)
	require.Equal(t, "", tb.HandID, "two bots alone must not start a hand")

	_, err = tb.Join("human", "Human", 200)
	require.NoError(t, err)
	assert.NotEmpty(t, tb.HandID, "a human seat unlocks dealing")
}

// The next hand self-schedules after the showdown delay and rotates
// the button.
func TestNextHandSchedulesAfterShowdownDelay(t *testing.T) {
	cfg := testConfig()
	tb, mock := newTestTable(t, cfg)

	_, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	_, err = tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	firstButton := tb.Button
	require.NoError(t, tb.HandleAction(tb.ActiveSeat, Fold()))
	require.Equal(t, "", tb.HandID)

	mock.Advance(time.Duration(cfg.ShowdownDelayMs) * time.Millisecond).MustWait(t.Context())
	assert.Equal(t, 2, tb.HandNumber())
	assert.NotEmpty(t, tb.HandID)
	assert.NotEqual(t, firstButton, tb.Button, "button rotates each hand")
}

// An aborted hand refunds every contribution and returns the table to
// waiting with chips conserved.
func TestAbortHandRefundsContributions(t *testing.T) {
	cfg := testConfig()
	tb, _ := newTestTable(t, cfg)

	seatA, err := tb.Join("alpha", "Alpha", 200)
	require.NoError(t, err)
	seatB, err := tb.Join("beta", "Beta", 200)
	require.NoError(t, err)

	require.NoError(t, tb.HandleAction(tb.ActiveSeat, RaiseTo(20)))

	tb.abortHand(errors.New("deck fault"))

	assert.Equal(t, "", tb.HandID)
	assert.Equal(t, 200, tb.Seats[seatA].Chips)
	assert.Equal(t, 200, tb.Seats[seatB].Chips)
	assert.Equal(t, 0, tb.Seats[seatA].TotalBetThisHand)
	assert.Equal(t, StatusWaiting, tb.Seats[seatA].Status)
	assert.Equal(t, 400, totalChips(tb))
}

// Chip conservation: across a played hand, stack + contribution never
// drifts from the starting total, even through a multi-way all-in.
func TestChipConservationAcrossHand(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 3
	tb, _ := newTestTable(t, cfg)

	_, err := tb.Join("a", "A", 80)
	require.NoError(t, err)
	_, err = tb.Join("b", "B", 120)
	require.NoError(t, err)
	_, err = tb.Join("c", "C", 160)
	require.NoError(t, err)

	start := totalChips(tb)
	require.Equal(t, 360, start)

	for tb.HandID != "" {
		seat := tb.ActiveSeat
		if seat < 0 {
			break
		}
		p := tb.Seats[seat]
		action := Call()
		if tb.Betting.CurrentBet-p.CurrentBet <= 0 {
			action = Check()
		}
		require.NoError(t, tb.HandleAction(seat, action))
		assert.Equal(t, start, totalChips(tb), "chip total drifted mid-hand")
	}

	assert.Equal(t, start, totalChips(tb))
}
