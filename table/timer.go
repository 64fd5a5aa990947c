package table

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// turnFingerprint identifies one authoritative turn clock: a given
// seat, acting in a given hand, on a given street. A new fingerprint
// invalidates any timer still running for the previous one.
type turnFingerprint struct {
	handID string
	street Street
	seat   int
}

// TurnScheduler drives the per-actor action clock: a base turn timer
// that, on expiry, either burns into the seat's time bank (if any is
// left) or forces a fold. Built on an injectable quartz.Clock so
// tests can advance virtual time instead of sleeping.
type TurnScheduler struct {
	clock    quartz.Clock
	turnMs   time.Duration
	onExpire func(seat int)
	onTick   func(seat int, remainingMs int64)
	mu       sync.Mutex
	current  turnFingerprint
	timer    *quartz.Timer
}

// NewTurnScheduler creates a scheduler. onExpire is invoked (off the
// caller's goroutine) when a seat's turn clock runs out with no time
// bank left to draw on. onTick fires once a second while the time bank
// is counting down so the caller can decrement the seat's remaining
// time bank and broadcast the update.
func NewTurnScheduler(clock quartz.Clock, turnMs time.Duration, onExpire func(seat int), onTick func(seat int, remainingMs int64)) *TurnScheduler {
	return &TurnScheduler{
		clock:    clock,
		turnMs:   turnMs,
		onExpire: onExpire,
		onTick:   onTick,
	}
}

// Start arms the clock for the given seat's turn. Any previously
// running timer for a different fingerprint is discarded first, so at
// most one timer is ever live per table.
func (ts *TurnScheduler) Start(handID string, street Street, seat int, timeBankMs int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.timer != nil {
		ts.timer.Stop()
	}

	fp := turnFingerprint{handID: handID, street: street, seat: seat}
	ts.current = fp

	duration := ts.turnMs
	ts.timer = ts.clock.AfterFunc(duration, func() {
		ts.expire(fp, timeBankMs)
	})
}

// Stop cancels any running timer, used when a seat acts before its
// clock expires.
func (ts *TurnScheduler) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.timer != nil {
		ts.timer.Stop()
		ts.timer = nil
	}
}

func (ts *TurnScheduler) expire(fp turnFingerprint, timeBankMs int64) {
	ts.mu.Lock()
	stale := fp != ts.current
	ts.mu.Unlock()
	if stale {
		return
	}

	if timeBankMs > 0 {
		ts.tickTimeBank(fp, timeBankMs)
		return
	}

	ts.onExpire(fp.seat)
}

// tickTimeBank counts a seat's time bank down one second at a time,
// invoking onTick after each tick so the caller can persist the
// decrement and broadcast it, then either fires onExpire or schedules
// the next tick.
func (ts *TurnScheduler) tickTimeBank(fp turnFingerprint, remainingMs int64) {
	step := time.Second
	if remainingMs < int64(step/time.Millisecond) {
		step = time.Duration(remainingMs) * time.Millisecond
	}

	ts.mu.Lock()
	ts.timer = ts.clock.AfterFunc(step, func() {
		ts.mu.Lock()
		stale := fp != ts.current
		ts.mu.Unlock()
		if stale {
			return
		}

		remaining := remainingMs - int64(step/time.Millisecond)
		if ts.onTick != nil {
			ts.onTick(fp.seat, remaining)
		}
		if remaining <= 0 {
			ts.onExpire(fp.seat)
			return
		}
		ts.tickTimeBank(fp, remaining)
	})
	ts.mu.Unlock()
}
