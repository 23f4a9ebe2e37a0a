/*
Package presence contains the real-time presence and relay engine.

This file defines the DurableSync adapter: best-effort write-behind of ephemeral
attributes (position, table assignment, read receipts) into the persistent store.
The in-memory Registry stays authoritative for live behavior; the durable mirror
is allowed to lag or miss updates under store failure, so every failure here is
logged and swallowed, never propagated to the relay.
*/
package presence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"alumnet/internal/pkg/logx"
)

// writeTimeout bounds every individual store operation issued by the adapter.
const writeTimeout = 5 * time.Second

// HangoutState is the durable mirror of a user's position and table assignment.
// It has no notion of connections; it records "where was this user last".
type HangoutState struct {
	X      float64
	Y      float64
	RoomID *string
}

// StateStore is the narrow durable-state contract the relay depends on. The
// production implementation lives in the store package.
type StateStore interface {
	// UpsertHangoutState writes the full baseline state for a user, creating the
	// record if absent. Field-level upsert: concurrent writers to other columns
	// of the same record must not be clobbered.
	UpsertHangoutState(ctx context.Context, userID string, x, y float64, roomID *string) error

	// UpdateHangoutPosition mirrors a position change.
	UpdateHangoutPosition(ctx context.Context, userID string, x, y float64) error

	// UpdateHangoutRoom mirrors a table change; nil clears the assignment.
	UpdateHangoutRoom(ctx context.Context, userID string, roomID *string) error

	// MarkChatMessagesRead marks every message in the chat that was not sent by
	// userID and not yet read by them as read.
	MarkChatMessagesRead(ctx context.Context, chatID, userID string) error

	// GetHangoutState loads the last durable state for a user. A missing record
	// is reported as an error by the implementation.
	GetHangoutState(ctx context.Context, userID string) (HangoutState, error)

	// GetChatParticipants returns the user IDs participating in the chat.
	GetChatParticipants(ctx context.Context, chatID string) ([]string, error)
}

// DurableSync wraps a StateStore with fire-and-forget semantics and logging.
type DurableSync struct {
	store  StateStore
	logger zerolog.Logger
}

// NewDurableSync constructs the adapter around the given store.
func NewDurableSync(store StateStore) *DurableSync {
	return &DurableSync{
		store:  store,
		logger: logx.Logger().With().Str("component", "DurableSync").Logger(),
	}
}

// SeedState loads the user's last durable position and table, used only to seed
// a fresh registration. Returns false when no record exists or the read fails.
func (s *DurableSync) SeedState(userID string) (HangoutState, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	state, err := s.store.GetHangoutState(ctx, userID)
	if err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID).Msg("No durable state to seed registration from.")
		return HangoutState{}, false
	}

	return state, true
}

// UpsertBaseline mirrors the registration-time state asynchronously.
func (s *DurableSync) UpsertBaseline(p UserPresence) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.store.UpsertHangoutState(ctx, p.UserID, p.X, p.Y, p.RoomID); err != nil {
			s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("Failed to persist baseline hangout state.")
		}
	}()
}

// SavePosition mirrors a movement asynchronously.
func (s *DurableSync) SavePosition(userID string, x, y float64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.store.UpdateHangoutPosition(ctx, userID, x, y); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist position update.")
		}
	}()
}

// SaveRoom mirrors a table change asynchronously.
func (s *DurableSync) SaveRoom(userID string, roomID *string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.store.UpdateHangoutRoom(ctx, userID, roomID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist table update.")
		}
	}()
}

// ChatParticipants resolves the chat's participant list, used to target the
// read-receipt push.
func (s *DurableSync) ChatParticipants(chatID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	return s.store.GetChatParticipants(ctx, chatID)
}

// MarkMessagesRead performs the read-receipt update synchronously so the durable
// state is written before the messagesRead push goes out, but still swallows
// failures: a missed receipt is re-derivable from a REST re-fetch.
func (s *DurableSync) MarkMessagesRead(chatID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.store.MarkChatMessagesRead(ctx, chatID, userID); err != nil {
		s.logger.Error().Err(err).
			Str("chat_id", chatID).
			Str("user_id", userID).
			Msg("Failed to persist read receipts.")
	}
}
