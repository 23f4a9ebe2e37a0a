/*
Package presence contains the real-time presence and relay engine.

This file defines the Hub, which owns the connection lifecycle (attach, register,
detach) and the event relay: broadcast-to-all-but-sender for movement and table
events, targeted relay for video signalling, follow notifications, message
delivery, and read receipts. REST-side triggers call into the Hub through its
exported Relay* methods.
*/
package presence

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"alumnet/internal/pkg/logx"
)

// Hub coordinates all live connections of the process. It is safe for
// concurrent use by transport goroutines and REST handlers.
type Hub struct {
	// registry is the authoritative in-memory map of online users.
	registry *Registry

	// sync mirrors selected ephemeral state into the durable store, best-effort.
	sync *DurableSync

	// mu protects the conns map.
	mu sync.RWMutex

	// conns holds every attached live connection, registered or not, by connection ID.
	conns map[string]Conn

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub around the given durable sync adapter.
func NewHub(sync *DurableSync) *Hub {
	return &Hub{
		registry: NewRegistry(),
		sync:     sync,
		conns:    make(map[string]Conn),
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Attach records a freshly accepted transport connection. The connection stays
// anonymous until its first registerUser event.
func (h *Hub) Attach(conn Conn) {
	h.mu.Lock()
	h.conns[conn.ID()] = conn
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Info().Str("conn_id", conn.ID()).Int("total_conns", total).Msg("Connection attached.")
}

// Detach handles the transport-level disconnect signal. It removes the
// connection, unregisters it from the Registry, and broadcasts userLeft exactly
// once when the user's last connection is gone. A connection that never
// registered performs no registry work and emits no events.
func (h *Hub) Detach(conn Conn) {
	h.mu.Lock()
	delete(h.conns, conn.ID())
	total := len(h.conns)
	h.mu.Unlock()

	if err := conn.Close(); err != nil {
		h.logger.Debug().Err(err).Str("conn_id", conn.ID()).Msg("Connection close error during detach.")
	}

	freedUserID, freed := h.registry.Unregister(conn.ID())
	if !freed {
		h.logger.Info().Str("conn_id", conn.ID()).Int("total_conns", total).Msg("Connection detached.")
		return
	}

	h.logger.Info().
		Str("conn_id", conn.ID()).
		Str("user_id", freedUserID).
		Int("online_users", h.registry.OnlineCount()).
		Msg("Last connection for user gone, broadcasting departure.")

	h.broadcast(EvtUserLeft, UserLeftEvent{UserID: freedUserID}, "")
}

// HandleRegister processes the registerUser event: it binds the connection to
// the user in the Registry, persists the baseline state, sends the current
// roster to the registering connection only, and announces the user to everyone
// else.
func (h *Hub) HandleRegister(conn Conn, p RegisterPayload) {
	defaults := UserPresence{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		X:         DefaultX,
		Y:         DefaultY,
	}
	if defaults.FirstName == "" {
		defaults.FirstName = DefaultFirstName
	}

	// Durable state seeds a fresh registration when the client supplies no
	// coordinates of its own.
	if !p.X.Valid || !p.Y.Valid {
		if state, ok := h.sync.SeedState(p.UserID); ok {
			defaults.X = state.X
			defaults.Y = state.Y
			defaults.RoomID = state.RoomID
		}
	}
	if p.X.Valid {
		defaults.X = p.X.Value
	}
	if p.Y.Valid {
		defaults.Y = p.Y.Value
	}

	current, ok := h.registry.Register(p.UserID, conn.ID(), defaults)
	if !ok {
		h.logger.Warn().
			Str("conn_id", conn.ID()).
			Str("user_id", p.UserID).
			Msg("Registration rejected: connection already bound to another user.")
		return
	}

	h.sync.UpsertBaseline(current)

	roster := make([]UserPresence, 0)
	for _, u := range h.registry.Snapshot() {
		if u.UserID != p.UserID {
			roster = append(roster, u)
		}
	}
	h.sendTo(conn, EvtExistingUsers, roster)

	h.logger.Info().
		Str("conn_id", conn.ID()).
		Str("user_id", p.UserID).
		Int("user_conns", h.registry.ConnectionCount(p.UserID)).
		Msg("Connection registered.")

	h.broadcast(EvtUserJoined, current, conn.ID())
}

// HandleMove processes the userMoved event: position update, durable mirror,
// broadcast to every other live connection. A movement for a user with no
// entry (disconnect race) is dropped.
func (h *Hub) HandleMove(conn Conn, p MovePayload) {
	if !h.registry.UpdatePosition(p.UserID, p.X.Value, p.Y.Value) {
		h.logger.Debug().Str("user_id", p.UserID).Msg("Dropping movement for offline user.")
		return
	}

	h.sync.SavePosition(p.UserID, p.X.Value, p.Y.Value)
	h.broadcast(EvtUserMoved, MovedEvent{UserID: p.UserID, X: p.X.Value, Y: p.Y.Value}, conn.ID())
}

// HandleJoinTable processes the joinTable event with the same contract as
// HandleMove, broadcasting tableJoined on success.
func (h *Hub) HandleJoinTable(conn Conn, p JoinTablePayload) {
	roomID := p.TableID
	if roomID != nil && *roomID == "" {
		roomID = nil
	}

	if !h.registry.UpdateRoom(p.UserID, roomID) {
		h.logger.Debug().Str("user_id", p.UserID).Msg("Dropping table join for offline user.")
		return
	}

	h.sync.SaveRoom(p.UserID, roomID)
	h.broadcast(EvtTableJoined, TableJoinedEvent{UserID: p.UserID, TableID: roomID}, conn.ID())
}

// HandleTableCreated relays an ad-hoc table-creation announcement to every other
// live connection. The payload is opaque and no state changes.
func (h *Hub) HandleTableCreated(conn Conn, raw json.RawMessage) {
	frame, err := json.Marshal(Event{Type: EvtTableCreated, Payload: raw})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode tableCreated frame.")
		return
	}

	h.broadcastFrame(frame, conn.ID())
}

// HandleMarkRead processes the markMessagesAsRead event. The durable update runs
// before the push; the messagesRead event then goes to the live connections of
// the chat's other participants, i.e. the senders of the messages just marked.
func (h *Hub) HandleMarkRead(conn Conn, p MarkReadPayload) {
	h.sync.MarkMessagesRead(p.ChatID, p.UserID)

	participants, err := h.sync.ChatParticipants(p.ChatID)
	if err != nil {
		h.logger.Error().Err(err).Str("chat_id", p.ChatID).Msg("Failed to resolve read-receipt targets.")
		return
	}

	frame, err := EncodeEvent(EvtMessagesRead, MessagesReadEvent{ChatID: p.ChatID, UserID: p.UserID})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode messagesRead frame.")
		return
	}

	for _, participantID := range participants {
		if participantID == p.UserID {
			continue
		}
		h.pushFrameToUser(participantID, EvtMessagesRead, frame)
	}
}

// HandleSignal relays a video-signalling event (offer, answer, ICE candidate,
// end) to every live connection of the target user, preserving the original
// payload byte-for-byte. An offline target drops the event silently.
func (h *Hub) HandleSignal(conn Conn, t EventType, raw json.RawMessage) {
	var envelope SignalEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.To == "" {
		h.logger.Warn().Str("event", string(t)).Msg("Ignoring signalling event without a target.")
		return
	}

	frame, err := json.Marshal(Event{Type: t, Payload: raw})
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode signalling frame.")
		return
	}

	h.pushFrameToUser(envelope.To, t, frame)
}

// RelayFollowNotification pushes userFollowed to every live connection of the
// followed user. Fire-and-forget: an offline target is a normal outcome.
func (h *Hub) RelayFollowNotification(followedUserID string, payload any) {
	frame, err := EncodeEvent(EvtUserFollowed, payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode userFollowed frame.")
		return
	}

	h.pushFrameToUser(followedUserID, EvtUserFollowed, frame)
}

// RelayMessageCreated pushes messageCreated to every live connection of every
// listed chat participant. Offline participants simply miss the live event and
// re-fetch via REST on reconnect.
func (h *Hub) RelayMessageCreated(participantIDs []string, chatID string, message any) {
	frame, err := EncodeEvent(EvtMessageCreated, MessageCreatedEvent{ChatID: chatID, Message: message})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode messageCreated frame.")
		return
	}

	for _, participantID := range participantIDs {
		h.pushFrameToUser(participantID, EvtMessageCreated, frame)
	}
}

// RelayChatCreated pushes chatCreated to every live connection of every listed
// chat participant.
func (h *Hub) RelayChatCreated(participantIDs []string, chat any) {
	frame, err := EncodeEvent(EvtChatCreated, chat)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode chatCreated frame.")
		return
	}

	for _, participantID := range participantIDs {
		h.pushFrameToUser(participantID, EvtChatCreated, frame)
	}
}

// IsUserOnline reports whether the user has at least one live connection.
// Used by REST-side logic, e.g. deciding whether to email an offline participant.
func (h *Hub) IsUserOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

// LiveConnectionCount returns the number of live connections for the user.
func (h *Hub) LiveConnectionCount(userID string) int {
	return h.registry.ConnectionCount(userID)
}

// Shutdown closes every attached connection. Called during graceful shutdown
// after the HTTP server has drained.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]Conn)
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			h.logger.Debug().Err(err).Str("conn_id", c.ID()).Msg("Connection close error during shutdown.")
		}
	}

	h.logger.Info().Int("closed_conns", len(conns)).Msg("Hub shutdown complete.")
}

// sendTo encodes and queues an event for a single connection.
func (h *Hub) sendTo(conn Conn, t EventType, payload any) {
	frame, err := EncodeEvent(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode event frame.")
		return
	}

	if err := conn.Send(frame); err != nil {
		h.logger.Warn().Err(err).
			Str("conn_id", conn.ID()).
			Str("event", string(t)).
			Msg("Failed to queue event for connection.")
	}
}

// broadcast encodes the payload once and pushes it to every live connection
// except exceptConnID. Delivery is connection-scoped: the sender's own other
// connections receive the event too.
func (h *Hub) broadcast(t EventType, payload any, exceptConnID string) {
	frame, err := EncodeEvent(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode broadcast frame.")
		return
	}

	h.broadcastFrame(frame, exceptConnID)
}

func (h *Hub) broadcastFrame(frame []byte, exceptConnID string) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.conns))
	for id, c := range h.conns {
		if id != exceptConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(frame); err != nil {
			h.logger.Warn().Err(err).Str("conn_id", c.ID()).Msg("Failed to queue broadcast for connection.")
		}
	}
}

// pushFrameToUser delivers a pre-encoded frame to every live connection of the
// target user. An offline target is recorded as a diagnostic only: no error, no
// retry, no queueing.
func (h *Hub) pushFrameToUser(userID string, t EventType, frame []byte) {
	connIDs := h.registry.ConnectionsFor(userID)
	if len(connIDs) == 0 {
		h.logger.Debug().
			Str("user_id", userID).
			Str("event", string(t)).
			Msg("Target offline, dropping event.")
		return
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(frame); err != nil {
			h.logger.Warn().Err(err).
				Str("conn_id", c.ID()).
				Str("event", string(t)).
				Msg("Failed to queue targeted event for connection.")
		}
	}
}
