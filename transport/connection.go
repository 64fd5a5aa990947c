// Package transport exposes a TableRegistry over WebSocket: one
// goroutine per connection pumps outbound pushes and pings, another
// pumps inbound client frames, and every inbound frame is decoded
// against the protocol package before it ever reaches the registry.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/holdem-core/protocol"
	"github.com/lox/holdem-core/registry"
	"github.com/lox/holdem-core/table"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
)

// connection wraps one WebSocket client: its own send buffer, a
// session token once it has joined a table, and an optional event
// subscription cancel func wired up after join.
type connection struct {
	conn     *websocket.Conn
	send     chan *protocol.Message
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
	closeOnce sync.Once

	registry *registry.TableRegistry

	token          string
	unsubscribe    func()
}

func newConnection(conn *websocket.Conn, logger zerolog.Logger, reg *registry.TableRegistry) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		conn:     conn,
		send:     make(chan *protocol.Message, 256),
		logger:   logger.With().Str("component", "connection").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		registry: reg,
	}
}

func (c *connection) start() {
	go c.writePump()
	go c.readPump()
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		token := c.token
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.mu.Unlock()
		if token != "" {
			if err := c.registry.Disconnect(token); err != nil {
				c.logger.Debug().Err(err).Msg("disconnect notification failed")
			}
		}
		// send is never closed; writePump exits on ctx cancellation,
		// so a late event pump can't hit a closed channel.
		_ = c.conn.Close()
	})
}

func (c *connection) sendMessage(msg *protocol.Message) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn().Msg("send buffer full, dropping connection")
		go c.close()
	}
}

func (c *connection) sendError(code, message string) {
	msg, err := protocol.NewMessage(protocol.MessageTypeError, protocol.ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	c.sendMessage(msg)
}

func (c *connection) setToken(token string, unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.unsubscribe = unsubscribe
}

func (c *connection) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *connection) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *connection) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MessageTypeJoin:
		var data protocol.JoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join data")
			return
		}
		c.handleJoin(data)

	case protocol.MessageTypeState:
		c.handleState()

	case protocol.MessageTypeAction:
		var data protocol.ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		c.handleAction(data)

	case protocol.MessageTypeLeave:
		c.handleLeave()

	case protocol.MessageTypeSitOut:
		c.handleSitOut()

	case protocol.MessageTypeReturnFromSitOut:
		c.handleReturnFromSitOut()

	case protocol.MessageTypeRebuy:
		var data protocol.RebuyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse rebuy data")
			return
		}
		c.handleRebuy(data)

	case protocol.MessageTypeListTables:
		c.handleListTables()

	case protocol.MessageTypeHistory:
		var data protocol.HistoryRequestData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse history request")
			return
		}
		c.handleHistory(data)

	default:
		c.sendError("unknown_message_type", string(msg.Type))
	}
}

func (c *connection) handleJoin(data protocol.JoinData) {
	token, tableID, seat, welcome, err := c.registry.Join(data.Name, data.BuyIn, data.TableType)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	events, unsubscribe, err := c.registry.Subscribe(token)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}
	c.setToken(token, unsubscribe)
	go c.pumpEvents(events)

	msg, err := protocol.NewMessage(protocol.MessageTypeJoined, protocol.JoinedData{
		Token: token, TableID: tableID, Seat: seat, Welcome: welcome,
	})
	if err != nil {
		return
	}
	c.sendMessage(msg)
}

func (c *connection) pumpEvents(events <-chan table.Event) {
	for ev := range events {
		msg, err := protocol.EncodeEvent(ev)
		if err != nil {
			continue
		}
		c.sendMessage(msg)
	}
}

func (c *connection) handleState() {
	token := c.getToken()
	if token == "" {
		c.sendError("not_joined", "must join a table first")
		return
	}
	state, err := c.registry.State(token)
	if err != nil {
		c.sendError("state_failed", err.Error())
		return
	}
	msg, err := protocol.NewMessage(protocol.MessageTypeStateResult, protocol.StateResultData{State: state})
	if err != nil {
		return
	}
	c.sendMessage(msg)
}

func (c *connection) handleAction(data protocol.ActionData) {
	token := c.getToken()
	if token == "" {
		c.sendError("not_joined", "must join a table first")
		return
	}
	action, err := data.ToAction()
	if err != nil {
		c.sendError("invalid_action", err.Error())
		return
	}
	if err := c.registry.Action(token, action); err != nil {
		c.sendError("action_failed", err.Error())
	}
}

func (c *connection) handleLeave() {
	token := c.getToken()
	if token == "" {
		c.sendError("not_joined", "must join a table first")
		return
	}
	if _, err := c.registry.Leave(token); err != nil {
		c.sendError("leave_failed", err.Error())
	}
}

func (c *connection) handleSitOut() {
	token := c.getToken()
	if token == "" {
		c.sendError("not_joined", "must join a table first")
		return
	}
	if err := c.registry.SetSitOut(token); err != nil {
		c.sendError("sit_out_failed", err.Error())
	}
}

func (c *connection) handleReturnFromSitOut() {
	token := c.getToken()
	if token == "" {
		c.sendError("not_joined", "must join a table first")
		return
	}
	if err := c.registry.ReturnFromSitOut(token); err != nil {
		c.sendError("return_failed", err.Error())
	}
}

func (c *connection) handleRebuy(data protocol.RebuyData) {
	token := c.getToken()
	if token == "" {
		c.sendError("not_joined", "must join a table first")
		return
	}
	if _, err := c.registry.Rebuy(token, data.Amount); err != nil {
		c.sendError("rebuy_failed", err.Error())
	}
}

func (c *connection) handleListTables() {
	msg, err := protocol.NewMessage(protocol.MessageTypeTables, protocol.TablesData{Tables: c.registry.Tables()})
	if err != nil {
		return
	}
	c.sendMessage(msg)
}

func (c *connection) handleHistory(data protocol.HistoryRequestData) {
	hands, err := c.registry.History(data.TableID, data.Limit)
	if err != nil {
		c.sendError("history_failed", err.Error())
		return
	}
	msg, err := protocol.NewMessage(protocol.MessageTypeHistoryResult, protocol.HistoryResultData{
		TableID: data.TableID, Hands: hands,
	})
	if err != nil {
		return
	}
	c.sendMessage(msg)
}
