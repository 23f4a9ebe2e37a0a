/*
Package presence contains the real-time presence and relay engine.

This file defines the wire envelope exchanged over a connection and the typed
payloads for every inbound and outbound event.
*/
package presence

import "encoding/json"

// EventType identifies an event flowing over a connection.
type EventType string

// Inbound event types accepted from a connection.
const (
	EvtRegisterUser     EventType = "registerUser"
	EvtUserMoved        EventType = "userMoved"
	EvtJoinTable        EventType = "joinTable"
	EvtTableCreated     EventType = "tableCreated"
	EvtMarkMessagesRead EventType = "markMessagesAsRead"

	EvtVideoOffer        EventType = "video-offer"
	EvtVideoAnswer       EventType = "video-answer"
	EvtVideoICECandidate EventType = "video-ice-candidate"
	EvtVideoEnd          EventType = "video-end"
)

// Outbound event types pushed to connections.
const (
	EvtExistingUsers  EventType = "existingUsers"
	EvtUserJoined     EventType = "userJoined"
	EvtTableJoined    EventType = "tableJoined"
	EvtMessagesRead   EventType = "messagesRead"
	EvtUserLeft       EventType = "userLeft"
	EvtUserFollowed   EventType = "userFollowed"
	EvtMessageCreated EventType = "messageCreated"
	EvtChatCreated    EventType = "chatCreated"
)

// Event is the wire envelope for every frame exchanged over a connection.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEvent marshals the payload and wraps it in an Event envelope, returning
// the ready-to-send frame bytes.
func EncodeEvent(t EventType, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Event{Type: t, Payload: payloadBytes})
}

// Coord is a single numeric coordinate that tolerates absent or non-numeric JSON
// input. Malformed values leave Valid false so the caller can apply defaults
// instead of rejecting the whole event.
type Coord struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts any JSON value and only records numbers. It never
// returns an error.
func (c *Coord) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		c.Value = f
		c.Valid = true
	}
	return nil
}

// MarshalJSON emits the numeric value; an unset coordinate marshals as 0.
func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// RegisterPayload is the inbound registerUser event. Only UserID is required;
// names and coordinates fall back to stored state or defaults.
type RegisterPayload struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	X         Coord  `json:"x,omitempty"`
	Y         Coord  `json:"y,omitempty"`
}

// MovePayload is the inbound userMoved event. All fields are required.
type MovePayload struct {
	UserID string `json:"userId"`
	X      Coord  `json:"x"`
	Y      Coord  `json:"y"`
}

// JoinTablePayload is the inbound joinTable event. An absent TableID clears the
// user's table assignment.
type JoinTablePayload struct {
	UserID  string  `json:"userId"`
	TableID *string `json:"tableId"`
}

// MarkReadPayload is the inbound markMessagesAsRead event.
type MarkReadPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// SignalEnvelope carries only the routing fields of a video-signalling event.
// The original raw payload is relayed to the target untouched.
type SignalEnvelope struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MovedEvent is the outbound userMoved broadcast.
type MovedEvent struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// TableJoinedEvent is the outbound tableJoined broadcast.
type TableJoinedEvent struct {
	UserID  string  `json:"userId"`
	TableID *string `json:"tableId"`
}

// MessagesReadEvent is the outbound messagesRead push, delivered to the live
// connections of the chat's other participants.
type MessagesReadEvent struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// UserLeftEvent is the outbound userLeft broadcast, emitted exactly once when a
// user's last connection goes away.
type UserLeftEvent struct {
	UserID string `json:"userId"`
}

// MessageCreatedEvent is the outbound messageCreated push sent to every live
// connection of every chat participant.
type MessageCreatedEvent struct {
	ChatID  string `json:"chatId"`
	Message any    `json:"message"`
}
