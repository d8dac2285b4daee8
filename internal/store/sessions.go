// ABOUTME: Session (pause record) store methods for the admission gate
// ABOUTME: Upsert-only writes; last-write-wins is the concurrency model

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSession retrieves the pause record for a chat.
// Returns ErrNotFound if no record exists (the chat is active).
func (s *SQLiteStore) GetSession(ctx context.Context, chatID string) (*Session, error) {
	query := `
		SELECT chat_id, is_paused, last_human_at, updated_at
		FROM sessions
		WHERE chat_id = ?
	`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpsertSession inserts or replaces the pause record for a chat.
// A nil LastHumanAt preserves the previously stored value on update, so an
// unpause does not erase when the hand-off happened.
func (s *SQLiteStore) UpsertSession(ctx context.Context, session *Session) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (chat_id, is_paused, last_human_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			is_paused     = excluded.is_paused,
			last_human_at = COALESCE(excluded.last_human_at, sessions.last_human_at),
			updated_at    = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ChatID,
		boolToInt(session.IsPaused),
		formatNullableTime(session.LastHumanAt),
		session.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("paused session requires last_human_at: %w", err)
		}
		return fmt.Errorf("upserting session: %w", err)
	}

	s.logger.Debug("upserted session",
		"chat_id", session.ChatID,
		"is_paused", session.IsPaused,
	)
	return nil
}

// ListSessions returns all pause records, paused first, newest update first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	query := `
		SELECT chat_id, is_paused, last_human_at, updated_at
		FROM sessions
		ORDER BY is_paused DESC, updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes the pause record for a chat. Maintenance only;
// the gate never calls this. Deleting a missing record is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ResumeAll clears every pause record and returns how many were removed.
func (s *SQLiteStore) ResumeAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("resuming all sessions: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting resumed sessions: %w", err)
	}

	s.logger.Info("resumed all sessions", "count", count)
	return count, nil
}

// scanSession scans a row into a Session.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var session Session
	var paused int
	var lastHumanStr *string
	var updatedStr string

	if err := scanner.Scan(&session.ChatID, &paused, &lastHumanStr, &updatedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.IsPaused = paused != 0

	if lastHumanStr != nil {
		t, err := time.Parse(time.RFC3339, *lastHumanStr)
		if err != nil {
			return nil, fmt.Errorf("parsing last_human_at: %w", err)
		}
		session.LastHumanAt = &t
	}

	var err error
	session.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &session, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	str := t.UTC().Format(time.RFC3339)
	return &str
}
