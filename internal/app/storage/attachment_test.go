package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnet/internal/pkg/errs"
)

func TestValidateFileSize(t *testing.T) {
	assert.Nil(t, ValidateFileSize(1))
	assert.Nil(t, ValidateFileSize(MaxAttachmentSize))

	err := ValidateFileSize(0)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrInvalidParams, err.Code)

	err = ValidateFileSize(MaxAttachmentSize + 1)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrFileSizeTooLarge, err.Code)
}

func TestValidateFileType(t *testing.T) {
	assert.Nil(t, ValidateFileType("photo.jpg", "image/jpeg"))
	assert.Nil(t, ValidateFileType("PHOTO.JPEG", "IMAGE/JPEG"))
	assert.Nil(t, ValidateFileType("anim.gif", "image/gif"))

	// Extension and MIME type must agree.
	assert.NotNil(t, ValidateFileType("photo.png", "image/jpeg"))
	assert.NotNil(t, ValidateFileType("report.pdf", "application/pdf"))
	assert.NotNil(t, ValidateFileType("noextension", "image/jpeg"))
	assert.NotNil(t, ValidateFileType("photo.jpg", "text/html"))
}

func TestChatFileKey(t *testing.T) {
	key := ChatFileKey("chat-1", "file-abc", "Holiday.JPG")
	assert.Equal(t, "chats/chat-1/file-abc.jpg", key)
	assert.True(t, len(ChatKeyPrefix("chat-1")) < len(key))
}

func TestValidateAttachments(t *testing.T) {
	valid := func() []Attachment {
		return []Attachment{{
			Key:      "chats/chat-1/file-abc.jpg",
			Name:     "photo.jpg",
			MimeType: "image/jpeg",
			Size:     1024,
			Meta:     json.RawMessage(`{"w":100}`),
		}}
	}

	t.Run("valid attachment strips meta", func(t *testing.T) {
		attachments := valid()
		require.Nil(t, ValidateAttachments("chat-1", attachments))
		assert.Nil(t, attachments[0].Meta)
	})

	t.Run("empty list rejected", func(t *testing.T) {
		err := ValidateAttachments("chat-1", nil)
		require.NotNil(t, err)
		assert.Equal(t, errs.ErrAttachmentCountInvalid, err.Code)
	})

	t.Run("too many rejected", func(t *testing.T) {
		attachments := make([]Attachment, MaxAttachmentsCount+1)
		for i := range attachments {
			attachments[i] = valid()[0]
		}
		err := ValidateAttachments("chat-1", attachments)
		require.NotNil(t, err)
		assert.Equal(t, errs.ErrAttachmentCountInvalid, err.Code)
	})

	t.Run("key outside chat namespace rejected", func(t *testing.T) {
		attachments := valid()
		attachments[0].Key = "chats/other-chat/file-abc.jpg"
		err := ValidateAttachments("chat-1", attachments)
		require.NotNil(t, err)
		assert.Equal(t, errs.ErrAttachmentKeyInvalid, err.Code)
	})

	t.Run("oversized file rejected", func(t *testing.T) {
		attachments := valid()
		attachments[0].Size = MaxAttachmentSize + 1
		err := ValidateAttachments("chat-1", attachments)
		require.NotNil(t, err)
		assert.Equal(t, errs.ErrFileSizeTooLarge, err.Code)
	})
}
