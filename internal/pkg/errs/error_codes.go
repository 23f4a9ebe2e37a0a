/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Chat and Messaging Business Logic Errors
const (
	// ErrChatNotFound indicates that the referenced chat does not exist.
	ErrChatNotFound = 2101

	// ErrNotChatParticipant indicates that the acting user is not a participant of the chat.
	ErrNotChatParticipant = 2102

	// ErrParticipantsInvalid indicates that the chat participant list is empty or malformed.
	ErrParticipantsInvalid = 2103

	// ErrMessageEmpty indicates that a message carried neither content nor attachments.
	ErrMessageEmpty = 2201

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrAttachmentCountInvalid indicates that the attachment count is out of the allowed range.
	ErrAttachmentCountInvalid = 2203

	// ErrAttachmentKeyInvalid indicates that an attachment key falls outside the chat's namespace.
	ErrAttachmentKeyInvalid = 2204

	// ErrFileSizeTooLarge indicates that an attachment exceeded the maximum file size.
	ErrFileSizeTooLarge = 2205
)

// 3xxx: Presence and Relay Errors
const (
	// ErrUserNotFound indicates that the referenced user identifier is unknown to the durable store.
	ErrUserNotFound = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates a failure while talking to the object storage backend.
	ErrFileStorageFailed = 5001
)
