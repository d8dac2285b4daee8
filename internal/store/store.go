// ABOUTME: Store interface and data types for handoff-gateway persistence
// ABOUTME: Defines Session, AuditEntry, SentMessage and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Session is the per-conversation pause record. A chat without a session
// row is active (not paused). Rows are upserted, never hard-deleted by the
// gate itself; deletion is a maintenance action.
type Session struct {
	ChatID      string
	IsPaused    bool
	LastHumanAt *time.Time // set when a human hand-off pause begins
	UpdatedAt   time.Time
}

// AuditEntry records one gate classification outcome. Every terminal branch
// of the gate writes exactly one entry; this trail is an observability
// contract, not optional logging.
type AuditEntry struct {
	ID        string // UUID v4, generated on append if empty
	ChatID    string
	Decision  string // decision tag, e.g. "forwarded", "ignored_group"
	Detail    map[string]any
	Timestamp time.Time
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since    *time.Time // entries after this time
	ChatID   *string    // filter by conversation
	Decision *string    // filter by decision tag
	Limit    int        // max results (default 100, max 1000)
}

// SentMessage logs one message the gateway sent through the WhatsApp API.
type SentMessage struct {
	ID         string // UUID v4
	ChatID     string
	ProviderID string // idMessage returned by the send call
	Text       string
	Kind       string // "text" or "audio"
	CreatedAt  time.Time
}

// Store defines the interface for gateway persistence
type Store interface {
	// Sessions (pause records)
	GetSession(ctx context.Context, chatID string) (*Session, error)
	UpsertSession(ctx context.Context, session *Session) error
	ListSessions(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, chatID string) error
	ResumeAll(ctx context.Context) (int64, error)

	// Audit trail
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)

	// Sent-message log
	SaveMessage(ctx context.Context, msg *SentMessage) error
	ListMessages(ctx context.Context, chatID string, limit int) ([]*SentMessage, error)

	// Close releases any resources held by the store
	Close() error
}
