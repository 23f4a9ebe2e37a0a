/*
Package presence contains the real-time presence and relay engine.

This file defines the Client struct, the WebSocket implementation of Conn. It manages
the connection's lifecycle, the message communication loops (ReadPump and WritePump),
and the dispatch of inbound events to the Hub.
*/
package presence

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"alumnet/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Client represents an active WebSocket connection. It implements Conn.
type Client struct {
	// unique connection identifier, minted at upgrade time.
	id string

	// the hub this connection reports to.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// userID is set after the first successful registerUser event. Read and
	// written only by the ReadPump goroutine.
	userID string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// done is closed exactly once when the connection is torn down.
	done chan struct{}

	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client around an upgraded WebSocket connection.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	id := uuid.NewString()

	return &Client{
		id:     id,
		hub:    hub,
		conn:   wsConn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		logger: logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for delivery without blocking. A full queue drops the
// frame: best-effort delivery, the client re-syncs via REST.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	case c.send <- data:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping frame.")
		return errors.New("send queue full")
	}
}

// Close tears down the connection. Safe to call from any goroutine, any number
// of times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("WebSocket close error.")
		}
	})
	return nil
}

// ReadPump reads frames from the WebSocket connection until it drops. It
// handles heartbeats (Pong) and dispatches inbound events to the Hub. The
// transport disconnect signal is the only thing that drives detachment.
func (c *Client) ReadPump() {
	defer c.hub.Detach(c)

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.dispatch(frame)
	}
}

// dispatch decodes an inbound frame and routes it to the matching Hub handler.
// Malformed or incomplete payloads are ignored with a diagnostic log; nothing
// is echoed back to the sender.
func (c *Client) dispatch(frame []byte) {
	var evt Event
	if err := json.Unmarshal(frame, &evt); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	switch evt.Type {
	case EvtRegisterUser:
		c.handleRegister(evt.Payload)

	case EvtUserMoved:
		var p MovePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.UserID == "" || !p.X.Valid || !p.Y.Valid {
			c.logger.Warn().Msg("Ignoring malformed userMoved payload")
			return
		}
		c.hub.HandleMove(c, p)

	case EvtJoinTable:
		var p JoinTablePayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.UserID == "" {
			c.logger.Warn().Msg("Ignoring malformed joinTable payload")
			return
		}
		c.hub.HandleJoinTable(c, p)

	case EvtTableCreated:
		c.hub.HandleTableCreated(c, evt.Payload)

	case EvtMarkMessagesRead:
		var p MarkReadPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.ChatID == "" || p.UserID == "" {
			c.logger.Warn().Msg("Ignoring malformed markMessagesAsRead payload")
			return
		}
		c.hub.HandleMarkRead(c, p)

	case EvtVideoOffer, EvtVideoAnswer, EvtVideoICECandidate, EvtVideoEnd:
		c.hub.HandleSignal(c, evt.Type, evt.Payload)

	default:
		c.logger.Warn().Str("event", string(evt.Type)).Msg("Client sent unsupported event type")
	}
}

// handleRegister validates and applies the registerUser event. A connection
// registers as exactly one user; repeats for the same user are idempotent,
// attempts to switch users are ignored.
func (c *Client) handleRegister(raw json.RawMessage) {
	var p RegisterPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.UserID == "" {
		c.logger.Warn().Msg("Ignoring malformed registerUser payload")
		return
	}

	if c.userID != "" && c.userID != p.UserID {
		c.logger.Warn().
			Str("registered_user_id", c.userID).
			Str("requested_user_id", p.UserID).
			Msg("Ignoring attempt to re-register connection as a different user")
		return
	}

	c.userID = p.UserID
	c.hub.HandleRegister(c, p)
}

// WritePump writes queued frames to the WebSocket connection and keeps the
// heartbeat alive. It exits when the connection is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Info().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Info().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
