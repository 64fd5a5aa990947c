// Package registry implements the TableRegistry, the only cross-table
// shared structure in the system. It maps client session tokens to the
// table that seats them and owns table creation/lookup and push-event
// fan-out, while leaving every table's own state mutation serialized
// behind that table's private actor queue (see actor.go).
package registry

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/holdem-core/config"
	"github.com/lox/holdem-core/table"
)

// tableEntry bundles one Table with the actor queue that serializes
// every operation against it and the set of push-channel subscribers
// fed from its events.
type tableEntry struct {
	id        string
	tableType string
	actor     *tableActor
	tbl       *table.Table

	subMu       sync.Mutex
	subscribers map[string]chan table.Event
}

// broadcast fans an event out to every live subscriber. Delivery is
// best-effort: a subscriber whose channel is full (a slow or stalled
// connection) simply misses this push, and every push carries enough
// state for a state query to reconstruct the client's view.
func (e *tableEntry) broadcast(ev table.Event) {
	e.subMu.Lock()
	subs := make([]chan table.Event, 0, len(e.subscribers))
	for _, ch := range e.subscribers {
		subs = append(subs, ch)
	}
	e.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// TableRegistry is the process-wide owner of every table. Its two
// maps (token→tableID, tableID→entry) are the only state shared across
// table actors; both are guarded by mu under a read-mostly discipline
// so concurrent State/Tables/History calls never block each other.
type TableRegistry struct {
	cfg    *config.ServerConfig
	clock  quartz.Clock
	logger zerolog.Logger

	mu     sync.RWMutex
	tables map[string]*tableEntry
	tokens map[string]string // token -> tableID

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an empty registry. seed drives every table's per-hand
// shuffle RNG, so a fixed seed reproduces an entire run
// deterministically.
func New(cfg *config.ServerConfig, clock quartz.Clock, logger zerolog.Logger, seed int64) *TableRegistry {
	return &TableRegistry{
		cfg:    cfg,
		clock:  clock,
		logger: logger.With().Str("component", "registry").Logger(),
		tables: make(map[string]*tableEntry),
		tokens: make(map[string]string),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (r *TableRegistry) nextTableSeed() int64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Int63()
}

// createTable spins up a new table of the given type with its own
// actor goroutine and a freshly seeded RNG, and registers it.
func (r *TableRegistry) createTable(tableType string) *tableEntry {
	id := uuid.NewString()
	entry := &tableEntry{
		id:          id,
		tableType:   tableType,
		actor:       newTableActor(),
		subscribers: make(map[string]chan table.Event),
	}

	tblRng := rand.New(rand.NewSource(r.nextTableSeed()))
	entry.tbl = table.New(id, r.cfg.TableConfig(), tblRng, r.clock, r.logger, nil, entry.broadcast)
	entry.tbl.SetDispatch(entry.actor.dispatch)

	r.mu.Lock()
	r.tables[id] = entry
	r.mu.Unlock()

	r.logger.Info().Str("table_id", id).Str("table_type", tableType).Msg("table created")
	return entry
}

// findOrCreateTable locates an existing table of tableType with an
// open seat, or creates a new one. Reading OpenSeats() always goes
// through the actor queue: Table does no locking of its own, so any
// read of its fields outside the actor goroutine would race against
// a hand in flight.
func (r *TableRegistry) findOrCreateTable(tableType string) *tableEntry {
	r.mu.RLock()
	var candidates []*tableEntry
	for _, e := range r.tables {
		if e.tableType == tableType {
			candidates = append(candidates, e)
		}
	}
	r.mu.RUnlock()

	for _, e := range candidates {
		open, _ := doValue(e.actor, func() (int, error) { return e.tbl.OpenSeats(), nil })
		if open > 0 {
			return e
		}
	}
	return r.createTable(tableType)
}

func (r *TableRegistry) tableForToken(token string) (*tableEntry, error) {
	r.mu.RLock()
	tableID, ok := r.tokens[token]
	r.mu.RUnlock()
	if !ok {
		return nil, newError(KindRouting, ErrUnknownPlayer, "token not registered")
	}

	r.mu.RLock()
	entry, ok := r.tables[tableID]
	r.mu.RUnlock()
	if !ok {
		return nil, newError(KindRouting, ErrUnknownTable, "table %s no longer exists", tableID)
	}
	return entry, nil
}

type joinResult struct {
	seat    int
	welcome table.PublicState
}

// Join seats a new client at a table of the given type, creating one
// if every existing table of that type is full. buyIn of 0 falls back
// to the configured default buy-in.
func (r *TableRegistry) Join(name string, buyIn int, tableType string) (token, tableID string, seat int, welcome table.PublicState, err error) {
	return r.join(name, buyIn, tableType, false)
}

// JoinBot seats a house-supplied filler bot the same way Join seats a
// client. The returned token drives the bot through the ordinary
// Action/State calls; tables configured with require_human_seat won't
// deal hands until at least one non-bot seat is present.
func (r *TableRegistry) JoinBot(name string, buyIn int, tableType string) (token, tableID string, seat int, welcome table.PublicState, err error) {
	return r.join(name, buyIn, tableType, true)
}

func (r *TableRegistry) join(name string, buyIn int, tableType string, bot bool) (token, tableID string, seat int, welcome table.PublicState, err error) {
	if strings.TrimSpace(name) == "" {
		return "", "", 0, table.PublicState{}, newError(KindValidation, ErrInvalidName, "name is empty")
	}
	if buyIn == 0 {
		buyIn = r.cfg.DefaultBuyIn()
	}
	if tableType == "" {
		tableType = "default"
	}

	entry := r.findOrCreateTable(tableType)
	token = uuid.NewString()

	res, err := doValue(entry.actor, func() (joinResult, error) {
		for _, p := range entry.tbl.Seats {
			if p != nil && p.Name == name {
				return joinResult{}, newError(KindValidation, ErrDuplicateName, "name %q already seated at this table", name)
			}
		}
		join := entry.tbl.Join
		if bot {
			join = entry.tbl.JoinBot
		}
		s, joinErr := join(token, name, buyIn)
		if joinErr != nil {
			return joinResult{}, joinErr
		}
		return joinResult{seat: s, welcome: entry.tbl.ToPublicJSON()}, nil
	})
	if err != nil {
		return "", "", 0, table.PublicState{}, err
	}

	r.mu.Lock()
	r.tokens[token] = entry.id
	r.mu.Unlock()

	return token, entry.id, res.seat, res.welcome, nil
}

// State returns the private view (own hole cards plus every seat's
// public state) for a seated token.
func (r *TableRegistry) State(token string) (table.PrivateState, error) {
	entry, err := r.tableForToken(token)
	if err != nil {
		return table.PrivateState{}, err
	}
	return doValue(entry.actor, func() (table.PrivateState, error) {
		return entry.tbl.GetStateForPlayer(token)
	})
}

// Action applies a validated decision on behalf of token.
func (r *TableRegistry) Action(token string, action table.Action) error {
	entry, err := r.tableForToken(token)
	if err != nil {
		return err
	}
	return entry.actor.do(func() error {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return seatErr
		}
		return entry.tbl.HandleAction(seat, action)
	})
}

// Leave removes token's seat, returning its final stack.
func (r *TableRegistry) Leave(token string) (int, error) {
	entry, err := r.tableForToken(token)
	if err != nil {
		return 0, err
	}
	stack, err := doValue(entry.actor, func() (int, error) {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return 0, seatErr
		}
		final := entry.tbl.Seats[seat].Chips
		if leaveErr := entry.tbl.Leave(seat); leaveErr != nil {
			return 0, leaveErr
		}
		return final, nil
	})
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()
	return stack, nil
}

// SetSitOut marks token's seat as sitting out.
func (r *TableRegistry) SetSitOut(token string) error {
	entry, err := r.tableForToken(token)
	if err != nil {
		return err
	}
	return entry.actor.do(func() error {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return seatErr
		}
		return entry.tbl.SetSitOut(seat)
	})
}

// ReturnFromSitOut clears token's sit-out flag.
func (r *TableRegistry) ReturnFromSitOut(token string) error {
	entry, err := r.tableForToken(token)
	if err != nil {
		return err
	}
	return entry.actor.do(func() error {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return seatErr
		}
		return entry.tbl.ReturnFromSitOut(seat)
	})
}

// Rebuy adds chips to token's stack, returning the new total.
func (r *TableRegistry) Rebuy(token string, amount int) (int, error) {
	entry, err := r.tableForToken(token)
	if err != nil {
		return 0, err
	}
	return doValue(entry.actor, func() (int, error) {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return 0, seatErr
		}
		if rebuyErr := entry.tbl.Rebuy(seat, amount); rebuyErr != nil {
			return 0, rebuyErr
		}
		return entry.tbl.Seats[seat].Chips, nil
	})
}

// Tables returns the public view of every table currently registered.
func (r *TableRegistry) Tables() []table.PublicState {
	r.mu.RLock()
	entries := make([]*tableEntry, 0, len(r.tables))
	for _, e := range r.tables {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	views := make([]table.PublicState, 0, len(entries))
	for _, e := range entries {
		v, _ := doValue(e.actor, func() (table.PublicState, error) { return e.tbl.ToPublicJSON(), nil })
		views = append(views, v)
	}
	return views
}

// History returns up to limit of tableID's most recently completed
// hands.
func (r *TableRegistry) History(tableID string, limit int) ([]table.HandRecord, error) {
	r.mu.RLock()
	entry, ok := r.tables[tableID]
	r.mu.RUnlock()
	if !ok {
		return nil, newError(KindRouting, ErrUnknownTable, "table %s", tableID)
	}
	return doValue(entry.actor, func() ([]table.HandRecord, error) {
		return entry.tbl.RecentHands(limit), nil
	})
}

// Disconnect translates transport loss for token's seat: sit out,
// force-folding first if it held the turn. The seat and token mapping
// are left intact so a later Reconnect can resume play.
func (r *TableRegistry) Disconnect(token string) error {
	entry, err := r.tableForToken(token)
	if err != nil {
		return err
	}
	return entry.actor.do(func() error {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return seatErr
		}
		return entry.tbl.Disconnect(seat)
	})
}

// Reconnect clears token's disconnected flag, returning it to play.
func (r *TableRegistry) Reconnect(token string) error {
	entry, err := r.tableForToken(token)
	if err != nil {
		return err
	}
	return entry.actor.do(func() error {
		seat, seatErr := entry.tbl.SeatForToken(token)
		if seatErr != nil {
			return seatErr
		}
		return entry.tbl.Reconnect(seat)
	})
}

// Subscribe opens a push channel for token's table, returning the
// channel and an unsubscribe func the caller must invoke when the
// connection closes. A client may hold several subscriptions at once
// (one per open connection).
func (r *TableRegistry) Subscribe(token string) (<-chan table.Event, func(), error) {
	entry, err := r.tableForToken(token)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.NewString()
	ch := make(chan table.Event, 64)

	entry.subMu.Lock()
	entry.subscribers[id] = ch
	entry.subMu.Unlock()

	cancel := func() {
		entry.subMu.Lock()
		if _, ok := entry.subscribers[id]; ok {
			delete(entry.subscribers, id)
			close(ch)
		}
		entry.subMu.Unlock()
	}
	return ch, cancel, nil
}
