/*
Package store implements the durable persistence layer on PostgreSQL.

This file defines the Queries struct with the hand-written query methods. The
hangout-state methods implement the presence.StateStore contract: field-level
upserts only, never full-row overwrites, because the REST layer may update the
same record concurrently.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"alumnet/internal/app/presence"
)

// Chat is a persisted chat record.
type Chat struct {
	ID           string    `json:"chatId"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChatMessage is a persisted chat message. ReadBy starts containing only the sender.
type ChatMessage struct {
	ID          string          `json:"id"`
	ChatID      string          `json:"chatId"`
	SenderID    string          `json:"senderId"`
	Content     string          `json:"content"`
	Attachments json.RawMessage `json:"attachments,omitempty"`
	ReadBy      []string        `json:"readBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Queries provides all database operations. One instance is shared across the
// application; pgxpool is safe for concurrent use.
type Queries struct {
	pool *pgxpool.Pool
}

// New constructs a Queries instance around the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// UpsertHangoutState writes the registration-time baseline for a user,
// creating the record if absent.
func (q *Queries) UpsertHangoutState(ctx context.Context, userID string, x, y float64, roomID *string) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO hangout_state (user_id, x, y, room_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET x = EXCLUDED.x, y = EXCLUDED.y, room_id = EXCLUDED.room_id, updated_at = now()`,
		userID, x, y, textOrNull(roomID),
	)
	if err != nil {
		return fmt.Errorf("upsert hangout state: %w", err)
	}
	return nil
}

// UpdateHangoutPosition mirrors a movement into the durable record, creating it
// if the user has never been persisted before.
func (q *Queries) UpdateHangoutPosition(ctx context.Context, userID string, x, y float64) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO hangout_state (user_id, x, y, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET x = EXCLUDED.x, y = EXCLUDED.y, updated_at = now()`,
		userID, x, y,
	)
	if err != nil {
		return fmt.Errorf("update hangout position: %w", err)
	}
	return nil
}

// UpdateHangoutRoom mirrors a table assignment change; nil clears it.
func (q *Queries) UpdateHangoutRoom(ctx context.Context, userID string, roomID *string) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO hangout_state (user_id, room_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET room_id = EXCLUDED.room_id, updated_at = now()`,
		userID, textOrNull(roomID),
	)
	if err != nil {
		return fmt.Errorf("update hangout room: %w", err)
	}
	return nil
}

// GetHangoutState loads the last durable presence state for the user.
// pgx.ErrNoRows is returned unwrapped when no record exists.
func (q *Queries) GetHangoutState(ctx context.Context, userID string) (presence.HangoutState, error) {
	var (
		state  presence.HangoutState
		roomID pgtype.Text
	)

	err := q.pool.QueryRow(ctx,
		`SELECT x, y, room_id FROM hangout_state WHERE user_id = $1`,
		userID,
	).Scan(&state.X, &state.Y, &roomID)
	if err != nil {
		return presence.HangoutState{}, err
	}

	if roomID.Valid {
		state.RoomID = &roomID.String
	}
	return state, nil
}

// CreateChat persists a new chat with its participant list in one transaction.
func (q *Queries) CreateChat(ctx context.Context, participantIDs []string) (Chat, error) {
	chat := Chat{
		ID:           uuid.NewString(),
		Participants: participantIDs,
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return Chat{}, fmt.Errorf("begin create chat: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO chats (id) VALUES ($1) RETURNING created_at`,
		chat.ID,
	).Scan(&chat.CreatedAt)
	if err != nil {
		return Chat{}, fmt.Errorf("insert chat: %w", err)
	}

	for _, userID := range participantIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			chat.ID, userID,
		); err != nil {
			return Chat{}, fmt.Errorf("insert chat participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Chat{}, fmt.Errorf("commit create chat: %w", err)
	}

	return chat, nil
}

// GetChatParticipants returns the user IDs participating in the chat. An empty
// slice with no error means the chat does not exist or has no participants.
func (q *Queries) GetChatParticipants(ctx context.Context, chatID string) ([]string, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan chat participant: %w", err)
		}
		participants = append(participants, userID)
	}

	return participants, rows.Err()
}

// CreateChatMessage persists a message and seeds its read set with the sender,
// in one transaction.
func (q *Queries) CreateChatMessage(ctx context.Context, chatID, senderID, content string, attachments json.RawMessage) (ChatMessage, error) {
	msg := ChatMessage{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     content,
		Attachments: attachments,
		ReadBy:      []string{senderID},
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("begin create message: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO chat_messages (id, chat_id, sender_id, content, attachments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		msg.ID, chatID, senderID, content, attachments,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)`,
		msg.ID, senderID,
	); err != nil {
		return ChatMessage{}, fmt.Errorf("insert sender read receipt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ChatMessage{}, fmt.Errorf("commit create message: %w", err)
	}

	return msg, nil
}

// MarkChatMessagesRead marks every message in the chat that was not sent by
// userID as read by them. Idempotent: already-read messages are skipped.
func (q *Queries) MarkChatMessagesRead(ctx context.Context, chatID, userID string) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO message_reads (message_id, user_id)
		SELECT m.id, $2
		FROM chat_messages m
		WHERE m.chat_id = $1 AND m.sender_id <> $2
		ON CONFLICT DO NOTHING`,
		chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("mark chat messages read: %w", err)
	}
	return nil
}

// textOrNull converts an optional string into a pgtype.Text for nullable columns.
func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// IsNotFound reports whether the error is the pgx no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
