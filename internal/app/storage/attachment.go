package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"alumnet/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// MaxAttachmentsCount defines the maximum number of attachments allowed per message.
	MaxAttachmentsCount = 3

	// PresignedURLDuration is the fixed duration for which a presigned URL is valid.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes defines the set of permitted MIME types for file attachments.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Attachment represents a file attachment in a chat message.
type Attachment struct {
	Key      string          `json:"fileKey"`
	Name     string          `json:"fileName"`
	MimeType string          `json:"mimeType"`
	Size     int64           `json:"fileSize"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

// ChatKeyPrefix returns the object-key namespace for a chat's attachments.
func ChatKeyPrefix(chatID string) string {
	return fmt.Sprintf("chats/%s/", chatID)
}

// ChatFileKey builds the object key for a new attachment inside the chat's namespace.
func ChatFileKey(chatID, fileID, fileName string) string {
	return ChatKeyPrefix(chatID) + fileID + strings.ToLower(filepath.Ext(fileName))
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks if the provided file name and MIME type are allowed.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

// ValidateAttachments checks count, key namespace and file type for every
// attachment of a message destined for the given chat.
func ValidateAttachments(chatID string, attachments []Attachment) *errs.CustomError {
	if count := len(attachments); count == 0 || count > MaxAttachmentsCount {
		return errs.NewError(errs.ErrAttachmentCountInvalid)
	}

	prefix := ChatKeyPrefix(chatID)

	for i := range attachments {
		a := &attachments[i]

		if !strings.HasPrefix(a.Key, prefix) {
			return errs.NewError(errs.ErrAttachmentKeyInvalid)
		}

		if err := ValidateFileType(a.Name, a.MimeType); err != nil {
			return err
		}

		if err := ValidateFileSize(a.Size); err != nil {
			return err
		}

		a.Meta = nil
	}

	return nil
}
