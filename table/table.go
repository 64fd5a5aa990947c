// Package table implements the per-table Hold'em hand state machine:
// seating, blinds, betting rounds, showdown and pot distribution, run
// by a single actor so a table's state is never touched from two
// goroutines at once.
package table

import (
	"math/rand"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/holdem-core/poker"
	"github.com/rs/zerolog"
)

// Config is the immutable set of rules a table is created with.
type Config struct {
	MinPlayers         int
	MaxPlayers         int
	SmallBlind         int
	BigBlind           int
	MinBuyIn           int
	MaxBuyIn           int
	TurnTimerMs        int64
	TimeBankSeconds    int64
	HandStartDelayMs   int64
	ShowdownDelayMs    int64
	SitOutAutoRemoveMs int64
	MaxHandHistory     int
	EloKFactor         float64
	DefaultElo         float64

	// RequireHumanSeat, when set, keeps a table of nothing but bot
	// seats from dealing hands to itself.
	RequireHumanSeat bool
}

// Table is one hand-state-machine instance. Every exported method is
// expected to be called from the single goroutine that owns this
// table (the actor loop in the registry package); Table itself does
// no internal locking.
type Table struct {
	ID     string
	Config Config

	Seats  []*Player // index is seat number, nil entries are empty seats
	Button int

	HandID  string
	HandNum int
	Street  Street
	Board   poker.Hand
	Deck    *poker.Deck
	Betting *BettingRound
	Pots    []Pot // laid out once the hand ends, from full-hand contributions

	sbSeat, bbSeat int // blind posters for the hand in progress

	handStarted time.Time
	handLog     []HistoryAction // chronological action log for the hand in progress

	ActiveSeat int // -1 when no hand is in progress or nobody can act

	History *History
	Stats   StatsCollector
	Logger  zerolog.Logger

	rng       *rand.Rand
	clock     quartz.Clock
	scheduler *TurnScheduler
	onEvent   func(Event)
	dispatch  func(func())

	sitOutTimers map[int]*quartz.Timer

	elo map[int]float64
}

// New creates an empty table ready to seat players.
func New(id string, cfg Config, rng *rand.Rand, clock quartz.Clock, logger zerolog.Logger, stats StatsCollector, onEvent func(Event)) *Table {
	t := &Table{
		ID:           id,
		Config:       cfg,
		Seats:        make([]*Player, cfg.MaxPlayers),
		Button:       -1,
		ActiveSeat:   -1,
		History:      NewHistory(cfg.MaxHandHistory),
		Stats:        stats,
		Logger:       logger.With().Str("component", "table").Str("table_id", id).Logger(),
		rng:          rng,
		clock:        clock,
		onEvent:      onEvent,
		sitOutTimers: make(map[int]*quartz.Timer),
		elo:          make(map[int]float64),
	}
	t.scheduler = NewTurnScheduler(clock, time.Duration(cfg.TurnTimerMs)*time.Millisecond,
		func(seat int) {
			t.runDispatched(func() { t.onTurnExpired(seat) })
		},
		func(seat int, remainingMs int64) {
			t.runDispatched(func() { t.onTimeBankTick(seat, remainingMs) })
		},
	)
	return t
}

// SetDispatch installs the function every timer-driven callback (turn
// expiry, sit-out auto-remove, hand-start/showdown delays) is routed
// through before touching table state. A registry actor uses this to
// fold timer fires into the same single ordered queue client actions
// arrive on, so nothing ever mutates a table from two goroutines at
// once. Left nil, callbacks run directly on the clock's own goroutine,
// which is fine for single-threaded tests against a mock clock.
func (t *Table) SetDispatch(fn func(func())) {
	t.dispatch = fn
}

func (t *Table) runDispatched(fn func()) {
	if t.dispatch != nil {
		t.dispatch(fn)
		return
	}
	fn()
}

// Join seats a new player in the first open seat, buying in for the
// given amount. Joining never starts a hand directly; maybeStartHand
// decides that once the new seat is settled.
func (t *Table) Join(token, name string, buyIn int) (int, error) {
	return t.join(token, name, buyIn, false)
}

// JoinBot seats a house-supplied filler the same way Join seats a
// client, marked so RequireHumanSeat tables don't start hands on bots
// alone.
func (t *Table) JoinBot(token, name string, buyIn int) (int, error) {
	return t.join(token, name, buyIn, true)
}

func (t *Table) join(token, name string, buyIn int, bot bool) (int, error) {
	if buyIn < t.Config.MinBuyIn || buyIn > t.Config.MaxBuyIn {
		return 0, newError(KindValidation, ErrBuyInOutOfRange, "buy-in %d outside [%d, %d]", buyIn, t.Config.MinBuyIn, t.Config.MaxBuyIn)
	}

	for _, p := range t.Seats {
		if p != nil && p.Token == token {
			return 0, newError(KindState, ErrAlreadySeated, "token already seated at seat %d", p.Seat)
		}
	}

	seat := -1
	for i, p := range t.Seats {
		if p == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		return 0, newError(KindResource, ErrTableFull, "")
	}

	p := NewPlayer(seat, token, name, buyIn, t.Config.DefaultElo)
	p.Bot = bot
	p.TimeBankMs = t.Config.TimeBankSeconds * 1000
	t.Seats[seat] = p
	t.elo[seat] = t.Config.DefaultElo
	t.Logger.Info().Int("seat", seat).Str("name", name).Int("buy_in", buyIn).Msg("player joined")
	t.emit(Event{Type: EventPlayerJoined, Seat: seat})

	t.maybeStartHand()
	return seat, nil
}

// Leave removes a seated player. A player still in the current hand is
// treated as an immediate fold before being removed; chips they have
// already committed stay in the pot, so the seat is only freed once
// the hand settles.
func (t *Table) Leave(seat int) error {
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	t.clearSitOutTimer(seat)
	if t.HandID != "" && (p.IsInHand() || p.TotalBetThisHand > 0) {
		p.Leaving = true
		t.emit(Event{Type: EventPlayerLeft, Seat: seat})
		t.forceFold(seat)
		return nil
	}
	t.freeSeat(seat)
	t.emit(Event{Type: EventPlayerLeft, Seat: seat})
	return nil
}

func (t *Table) freeSeat(seat int) {
	t.Seats[seat] = nil
	delete(t.elo, seat)
}

// SetSitOut marks a seated player as sitting out. If it's their turn
// right now, this also forces a fold so the hand doesn't stall.
func (t *Table) SetSitOut(seat int) error {
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	if p.Status == StatusSittingOut {
		return nil
	}
	if p.IsInHand() && seat == t.ActiveSeat {
		t.forceFold(seat)
	}
	p.Status = StatusSittingOut
	t.armSitOutTimer(seat)
	return nil
}

// ReturnFromSitOut clears the sit-out flag so the seat is dealt into
// the next hand.
func (t *Table) ReturnFromSitOut(seat int) error {
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	if p.Status != StatusSittingOut {
		return newError(KindState, ErrNotSittingOut, "seat %d", seat)
	}
	p.Status = StatusWaiting
	t.clearSitOutTimer(seat)
	t.maybeStartHand()
	return nil
}

// Disconnect translates transport loss into table state: the seat is
// marked disconnected and sat out, force-folding first if it was this
// seat's turn to act. Unlike Leave, the seat itself is left in place
// so a later Reconnect can resume it without losing its spot or
// stack.
func (t *Table) Disconnect(seat int) error {
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	p.Disconnected = true
	if p.IsInHand() && seat == t.ActiveSeat {
		t.forceFold(seat)
	}
	if p.Status != StatusSittingOut {
		p.Status = StatusSittingOut
		t.armSitOutTimer(seat)
	}
	return nil
}

// Reconnect clears a seat's disconnected flag and, if the seat is
// sitting out, returns it to play for the next hand, whatever put it
// in sit-out.
func (t *Table) Reconnect(seat int) error {
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	p.Disconnected = false
	if p.Status == StatusSittingOut {
		return t.ReturnFromSitOut(seat)
	}
	return nil
}

// Rebuy adds chips to a seated player's stack. It is refused while the
// seat is still in the hand in progress; a seat that has folded or is
// sitting out may rebuy mid-hand.
func (t *Table) Rebuy(seat, amount int) error {
	p, err := t.seatOf(seat)
	if err != nil {
		return err
	}
	if t.HandID != "" && p.IsInHand() {
		return newError(KindState, ErrHandInProgress, "cannot rebuy mid-hand")
	}
	if p.Chips+amount > t.Config.MaxBuyIn {
		return newError(KindValidation, ErrBuyInOutOfRange, "rebuy would exceed max buy-in")
	}
	p.Chips += amount
	t.maybeStartHand()
	return nil
}

func (t *Table) seatOf(seat int) (*Player, error) {
	if seat < 0 || seat >= len(t.Seats) {
		return nil, newError(KindValidation, ErrSeatNotFound, "seat %d out of range", seat)
	}
	p := t.Seats[seat]
	if p == nil {
		return nil, newError(KindRouting, ErrSeatNotFound, "seat %d empty", seat)
	}
	return p, nil
}

func (t *Table) armSitOutTimer(seat int) {
	t.clearSitOutTimer(seat)
	d := time.Duration(t.Config.SitOutAutoRemoveMs) * time.Millisecond
	t.sitOutTimers[seat] = t.clock.AfterFunc(d, func() {
		t.runDispatched(func() { _ = t.Leave(seat) })
	})
}

func (t *Table) clearSitOutTimer(seat int) {
	if timer, ok := t.sitOutTimers[seat]; ok {
		timer.Stop()
		delete(t.sitOutTimers, seat)
	}
}

// eligibleSeats returns seats that can be dealt into the next hand:
// occupied, not sitting out, and holding chips, in seat order.
func (t *Table) eligibleSeats() []int {
	var seats []int
	for i, p := range t.Seats {
		if p != nil && p.Status != StatusSittingOut && p.Chips > 0 {
			seats = append(seats, i)
		}
	}
	return seats
}

func (t *Table) hasHumanSeat() bool {
	for _, seat := range t.eligibleSeats() {
		if !t.Seats[seat].Bot {
			return true
		}
	}
	return false
}

func (t *Table) maybeStartHand() {
	if t.HandID != "" {
		return
	}
	if len(t.eligibleSeats()) < t.Config.MinPlayers {
		return
	}
	if t.Config.RequireHumanSeat && !t.hasHumanSeat() {
		return
	}
	if t.Config.HandStartDelayMs > 0 {
		t.clock.AfterFunc(time.Duration(t.Config.HandStartDelayMs)*time.Millisecond, func() {
			t.runDispatched(t.startHand)
		})
		return
	}
	t.startHand()
}
