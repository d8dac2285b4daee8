// ABOUTME: Routing decision types emitted by the admission gate
// ABOUTME: Decisions are returned and dispatched immediately, never persisted

package gate

// Decision tags. Each tag names the terminal rule that fired and doubles as
// the audit-log decision value and the webhook response status.
const (
	TagIgnored          = "ignored"           // non-incoming event, no action
	TagIgnoredGroup     = "ignored_group"     // group chats are never answered
	TagIgnoredWhitelist = "ignored_whitelist" // sender not authorized
	TagIgnoredBlacklist = "ignored_blacklist" // display name blacklisted
	TagDuplicate        = "duplicate"         // provider redelivery, dropped
	TagUnpaused         = "unpaused"          // explicit resume command
	TagPaused           = "paused"            // human hand-off detected
	TagForwarded        = "forwarded"         // admitted, sent to chat processor
)

// MessageType values on the forward request wire format.
const (
	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
)

// ForwardRequest is the payload handed to the chat processor when an event
// is admitted (rule 10).
type ForwardRequest struct {
	ChatID      string `json:"chatId"`
	Message     string `json:"message"`
	MessageID   string `json:"messageId"`
	MessageType string `json:"messageType"` // "text" or "audio"
	DownloadURL string `json:"downloadUrl,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`

	// Background (isPaused on the wire) tells the processor to generate a
	// reply but suppress the visible send: a human is handling this chat.
	Background bool `json:"isPaused"`
}

// Decision is the gate's output for one event.
type Decision struct {
	Tag    string
	ChatID string

	// Forward is set only for TagForwarded.
	Forward *ForwardRequest
}

// SessionChange describes the pause-record write a decision requires.
// Nil means no write.
type SessionChange struct {
	// Pause true starts a hand-off pause (last_human_at = now);
	// false clears it.
	Pause bool
}
