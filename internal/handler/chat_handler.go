/*
Package handler provides HTTP handler functions for chat creation and message delivery.

Message creation is the canonical external trigger: the message is persisted first,
then relayed to every live connection of every chat participant. Offline participants
simply miss the live event and re-fetch via REST; the response reports who was offline
so an upstream notifier can decide to email them.
*/
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alumnet/internal/app/storage"
	"alumnet/internal/app/store"
	"alumnet/internal/pkg/errs"
	"alumnet/internal/pkg/logx"
	"alumnet/internal/pkg/req"
	"alumnet/internal/pkg/resp"
)

// MaxContentBytes is the maximum allowed size (in bytes) for message content.
const MaxContentBytes = 5000

// CreateChatInput defines the JSON input structure for creating a chat.
type CreateChatInput struct {
	Participants []string `json:"participants"`
}

// HandleCreateChat persists a new chat and pushes chatCreated to every live
// connection of every participant.
func HandleCreateChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateChatInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		participants := dedupeNonEmpty(input.Participants)
		if len(participants) < 2 {
			resp.RespondError(w, r, errs.NewError(errs.ErrParticipantsInvalid))
			return
		}

		chat, err := deps.DB.CreateChat(r.Context(), participants)
		if err != nil {
			logx.Error(err, "Failed to create chat")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Hub.RelayChatCreated(participants, chat)

		resp.RespondSuccess(w, r, chat)
	}
}

// CreateMessageInput defines the JSON input structure for creating a chat message.
type CreateMessageInput struct {
	SenderID    string               `json:"senderId"`
	Content     string               `json:"content"`
	Attachments []storage.Attachment `json:"attachments,omitempty"`
}

// HandleCreateMessage persists a message and invokes the message-created relay.
func HandleCreateMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")
		if chatID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input CreateMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.SenderID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if input.Content == "" && len(input.Attachments) == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageEmpty))
			return
		}

		if len(input.Content) > MaxContentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		if len(input.Attachments) > 0 {
			if customErr := storage.ValidateAttachments(chatID, input.Attachments); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		}

		participants, err := deps.DB.GetChatParticipants(r.Context(), chatID)
		if err != nil {
			logx.Error(err, "Failed to load chat participants", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if len(participants) == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrChatNotFound))
			return
		}
		if !contains(participants, input.SenderID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotChatParticipant))
			return
		}

		var attachments json.RawMessage
		if len(input.Attachments) > 0 {
			attachments, err = json.Marshal(input.Attachments)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
		}

		msg, err := deps.DB.CreateChatMessage(r.Context(), chatID, input.SenderID, input.Content, attachments)
		if err != nil {
			if store.IsForeignKeyViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrChatNotFound))
				return
			}
			logx.Error(err, "Failed to create chat message", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Hub.RelayMessageCreated(participants, chatID, msg)

		offline := make([]string, 0)
		for _, participantID := range participants {
			if !deps.Hub.IsUserOnline(participantID) {
				offline = append(offline, participantID)
			}
		}

		data := map[string]any{
			"message":             msg,
			"offlineParticipants": offline,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// dedupeNonEmpty drops empty IDs and duplicates while preserving order.
func dedupeNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
