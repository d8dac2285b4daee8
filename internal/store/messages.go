// ABOUTME: Sent-message log store methods
// ABOUTME: Records every message the gateway pushed through the WhatsApp API

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveMessage records a message sent through the WhatsApp API.
// Generates ID and CreatedAt if not set; Kind defaults to "text".
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *SentMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Kind == "" {
		msg.Kind = "text"
	}

	query := `
		INSERT INTO messages (id, chat_id, provider_id, text, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ChatID,
		msg.ProviderID,
		msg.Text,
		msg.Kind,
		msg.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved sent message", "id", msg.ID, "chat_id", msg.ChatID, "kind", msg.Kind)
	return nil
}

// ListMessages returns the most recent sent messages for a chat, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string, limit int) ([]*SentMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, chat_id, provider_id, text, kind, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []*SentMessage
	for rows.Next() {
		var m SentMessage
		var createdStr string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.ProviderID, &m.Text, &m.Kind, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		msgs = append(msgs, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}
