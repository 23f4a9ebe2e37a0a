/*
Package handler provides HTTP handler functions for attachment upload and download.

Both operations hand out short-lived presigned URLs scoped to a chat's key
namespace; the file bytes never pass through this server.
*/
package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"alumnet/internal/app/storage"
	"alumnet/internal/pkg/errs"
	"alumnet/internal/pkg/logx"
	"alumnet/internal/pkg/req"
	"alumnet/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating an upload URL.
type PresignUploadInput struct {
	ChatID   string `json:"chatId"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file upload, scoped to a specific chat.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ChatID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := storage.ValidateFileSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateFileType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		participants, err := deps.DB.GetChatParticipants(r.Context(), input.ChatID)
		if err != nil {
			logx.Error(err, "Failed to load chat participants", "chat_id", input.ChatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if len(participants) == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrChatNotFound))
			return
		}

		fileKey := storage.ChatFileKey(input.ChatID, uuid.NewString(), input.FileName)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePresignDownloadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file download, scoped to a specific chat.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := r.URL.Query().Get("chatId")
		fileKey := r.URL.Query().Get("k")
		if chatID == "" || fileKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !strings.HasPrefix(fileKey, storage.ChatKeyPrefix(chatID)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		url, err := deps.StorageService.PresignDownload(
			r.Context(),
			fileKey,
			storage.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
		}
		resp.RespondSuccess(w, r, data)
	}
}
