package table

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that need to distinguish a
// client mistake from a one-off failure worth retrying.
type Kind int

const (
	// KindValidation means the request itself is malformed (bad
	// amount, unknown action) independent of table state.
	KindValidation Kind = iota
	// KindRouting means the token or table id doesn't resolve to
	// anything this process knows about.
	KindRouting
	// KindState means the request is well formed but doesn't apply
	// to the table's current state (acting out of turn, acting in a
	// hand that hasn't started).
	KindState
	// KindResource means the table or engine itself could not
	// satisfy the request (deck exhausted, chip conservation broken).
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRouting:
		return "routing"
	case KindState:
		return "state"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

var (
	ErrNotYourTurn       = errors.New("table: not your turn")
	ErrInvalidAction     = errors.New("table: invalid action")
	ErrInvalidAmount     = errors.New("table: invalid amount")
	ErrTableNotFound     = errors.New("table: not found")
	ErrSeatNotFound      = errors.New("table: seat not found")
	ErrTableFull         = errors.New("table: full")
	ErrSeatTaken         = errors.New("table: seat taken")
	ErrBuyInOutOfRange   = errors.New("table: buy-in out of range")
	ErrHandNotInProgress = errors.New("table: no hand in progress")
	ErrHandInProgress    = errors.New("table: hand already in progress")
	ErrAlreadySeated     = errors.New("table: already seated")
	ErrNotSittingOut     = errors.New("table: not sitting out")
	ErrEngineFault       = errors.New("table: engine fault")
	ErrUnknownPlayer     = errors.New("table: unknown player")
)

// Error is the typed error this package returns for every operation
// that can fail. It wraps one of the sentinels above so callers can
// use errors.Is against either the sentinel or a Kind check.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, sentinel error, format string, args ...any) *Error {
	err := sentinel
	if format != "" {
		err = fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
	}
	return &Error{Kind: kind, Err: err}
}
