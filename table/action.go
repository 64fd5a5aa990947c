package table

import "fmt"

// ActionKind tags the variant carried by an Action. Hold'em has
// exactly these four shapes of player decision; a RaiseTo carries the
// new total bet, not a delta.
type ActionKind int

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionRaiseTo
)

func (k ActionKind) String() string {
	switch k {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionRaiseTo:
		return "raise_to"
	default:
		return "unknown"
	}
}

// Action is the tagged union of everything a seat can do on its turn.
// Amount is only meaningful for ActionRaiseTo, where it is the new
// total bet for the street, not an increment.
type Action struct {
	Kind   ActionKind
	Amount int
}

func Fold() Action              { return Action{Kind: ActionFold} }
func Check() Action             { return Action{Kind: ActionCheck} }
func Call() Action              { return Action{Kind: ActionCall} }
func RaiseTo(amount int) Action { return Action{Kind: ActionRaiseTo, Amount: amount} }

func (a Action) String() string {
	if a.Kind == ActionRaiseTo {
		return fmt.Sprintf("raise_to(%d)", a.Amount)
	}
	return a.Kind.String()
}
