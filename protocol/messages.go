// Package protocol defines the JSON wire format client connections and
// the transport layer exchange: a typed envelope with a raw payload,
// plus the payload structs for every request, reply and push event.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/holdem-core/table"
)

// ErrUnknownActionKind is returned by ActionData.ToAction for any kind
// string outside the four the engine understands.
var ErrUnknownActionKind = fmt.Errorf("protocol: unknown action kind")

// MessageType tags the payload carried in a Message's Data field.
type MessageType string

// Client → server message types.
const (
	MessageTypeJoin           MessageType = "join"
	MessageTypeState          MessageType = "state"
	MessageTypeAction         MessageType = "action"
	MessageTypeLeave          MessageType = "leave"
	MessageTypeSitOut         MessageType = "sit_out"
	MessageTypeReturnFromSitOut MessageType = "return_from_sit_out"
	MessageTypeRebuy          MessageType = "rebuy"
	MessageTypeListTables     MessageType = "list_tables"
	MessageTypeHistory        MessageType = "history"
)

// Server → client message types. The push-event subset mirrors
// table.EventType one for one; ack/error types answer a specific
// client request.
const (
	MessageTypeJoined  MessageType = "joined"
	MessageTypeError   MessageType = "error"
	MessageTypeTables  MessageType = "tables"
	MessageTypeHistoryResult MessageType = "history_result"
	MessageTypeStateResult   MessageType = "state_result"

	MessageTypePlayerJoined    MessageType = "player_joined"
	MessageTypePlayerLeft      MessageType = "player_left"
	MessageTypeBlindsPosted    MessageType = "blinds_posted"
	MessageTypeCardsDealt      MessageType = "cards_dealt"
	MessageTypeActionOn        MessageType = "action_on"
	MessageTypePlayerAction    MessageType = "player_action"
	MessageTypeCommunityCards MessageType = "community_cards"
	MessageTypeShowdown        MessageType = "showdown"
	MessageTypeHandComplete    MessageType = "hand_complete"
	MessageTypeDealerNarration MessageType = "dealer_narration"
	MessageTypeTimeBankTick    MessageType = "time_bank_tick"
	MessageTypeHandAborted     MessageType = "hand_aborted"
)

// Message is the envelope every frame on the wire uses, client→server
// and server→client alike.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewMessage marshals data into a Message's Data field, stamping the
// current time the way sdk.NewMessage does.
func NewMessage(msgType MessageType, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Data: raw, Timestamp: time.Now().UTC()}, nil
}

// Client → server payloads.

type JoinData struct {
	Name      string `json:"name"`
	BuyIn     int    `json:"buyIn"`
	TableType string `json:"tableType,omitempty"`
}

// ActionData carries one player decision. Amount is only meaningful
// when Kind is "raise_to", where it is the new total bet for the
// street rather than an increment.
type ActionData struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
}

// ToAction converts the wire action into table.Action, rejecting any
// kind string outside the four the engine understands.
func (d ActionData) ToAction() (table.Action, error) {
	switch d.Kind {
	case "fold":
		return table.Fold(), nil
	case "check":
		return table.Check(), nil
	case "call":
		return table.Call(), nil
	case "raise_to":
		return table.RaiseTo(d.Amount), nil
	default:
		return table.Action{}, fmt.Errorf("%w: %q", ErrUnknownActionKind, d.Kind)
	}
}

type RebuyData struct {
	Amount int `json:"amount"`
}

type HistoryRequestData struct {
	TableID string `json:"tableId"`
	Limit   int    `json:"limit,omitempty"`
}

// Server → client payloads.

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JoinedData struct {
	Token   string             `json:"token"`
	TableID string             `json:"tableId"`
	Seat    int                `json:"seat"`
	Welcome table.PublicState  `json:"welcome"`
}

type TablesData struct {
	Tables []table.PublicState `json:"tables"`
}

type HistoryResultData struct {
	TableID string             `json:"tableId"`
	Hands   []table.HandRecord `json:"hands"`
}

type StateResultData struct {
	State table.PrivateState `json:"state"`
}

// EventData wraps a table.Event for wire delivery; the JSON-visible
// fields line up with what EventTypeFor selects as the message type.
type EventData struct {
	Seat       int                     `json:"seat,omitempty"`
	Street     string                  `json:"street,omitempty"`
	Action     string                  `json:"action,omitempty"`
	Board      string                  `json:"board,omitempty"`
	Pots       []table.Pot             `json:"pots,omitempty"`
	Winners    []table.WinnerRecord    `json:"winners,omitempty"`
	Reveals    []table.ContenderRecord `json:"reveals,omitempty"`
	Message    string                  `json:"message,omitempty"`
	TimeBankMs int64                   `json:"timeBankMs,omitempty"`

	// action_on context: the prompted seat's full decision picture.
	Pot             int `json:"pot,omitempty"`
	CurrentBetLevel int `json:"currentBetLevel,omitempty"`
	PlayerBet       int `json:"playerBet,omitempty"`
	ToCall          int `json:"toCall,omitempty"`
	MinRaise        int `json:"minRaise,omitempty"`
}

// EventTypeFor maps a table.Event to the wire MessageType a connection
// should receive it under.
func EventTypeFor(ev table.Event) MessageType {
	switch ev.Type {
	case table.EventPlayerJoined:
		return MessageTypePlayerJoined
	case table.EventPlayerLeft:
		return MessageTypePlayerLeft
	case table.EventBlindsPosted:
		return MessageTypeBlindsPosted
	case table.EventCardsDealt:
		return MessageTypeCardsDealt
	case table.EventActionOn:
		return MessageTypeActionOn
	case table.EventPlayerAction:
		return MessageTypePlayerAction
	case table.EventCommunityCards:
		return MessageTypeCommunityCards
	case table.EventShowdown:
		return MessageTypeShowdown
	case table.EventHandComplete:
		return MessageTypeHandComplete
	case table.EventDealerNarration:
		return MessageTypeDealerNarration
	case table.EventTimeBankTick:
		return MessageTypeTimeBankTick
	case table.EventHandAborted:
		return MessageTypeHandAborted
	default:
		return MessageTypeError
	}
}

// EncodeEvent turns a table.Event into the Message a subscriber
// connection should write to its socket.
func EncodeEvent(ev table.Event) (*Message, error) {
	data := EventData{
		Seat:       ev.Seat,
		Street:     ev.Street.String(),
		Board:      ev.Board,
		Pots:       ev.Pots,
		Winners:    ev.Winners,
		Reveals:    ev.Reveals,
		Message:    ev.Message,
		TimeBankMs: ev.TimeBankMs,

		Pot:             ev.Pot,
		CurrentBetLevel: ev.CurrentBetLevel,
		PlayerBet:       ev.PlayerBet,
		ToCall:          ev.ToCall,
		MinRaise:        ev.MinRaise,
	}
	if ev.Action.Kind != 0 || ev.Type == table.EventPlayerAction {
		data.Action = ev.Action.String()
	}
	return NewMessage(EventTypeFor(ev), data)
}
