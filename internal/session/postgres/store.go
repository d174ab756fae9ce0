// Package postgres persists conversation logs in a single append-only table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlchat/sqlchat/internal/session"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sessions db: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, sessionID, role, content string) error {
	query := `
INSERT INTO conversation_message (session_id, role, content)
VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, sessionID, role, content); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ReadAll returns the session's messages in exact append order. The bigserial
// primary key breaks created_at ties so re-reads reproduce insertion order.
func (s *Store) ReadAll(ctx context.Context, sessionID string) ([]session.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content
FROM conversation_message
WHERE session_id = $1
ORDER BY created_at ASC, message_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]session.Message, 0)
	for rows.Next() {
		var msg session.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}

func (s *Store) ReadAllWithTimestamps(ctx context.Context, sessionID string) ([]session.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content, created_at
FROM conversation_message
WHERE session_id = $1
ORDER BY created_at ASC, message_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read conversation with timestamps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]session.StoredMessage, 0)
	for rows.Next() {
		var msg session.StoredMessage
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}

// ListSessions returns every session id with its first user message, newest
// session first.
func (s *Store) ListSessions(ctx context.Context) ([]session.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, content, created_at FROM (
    SELECT DISTINCT ON (session_id) session_id, content, created_at
    FROM conversation_message
    WHERE role = 'user'
    ORDER BY session_id, created_at ASC, message_id ASC
) AS first_messages
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]session.Info, 0)
	for rows.Next() {
		var info session.Info
		if err := rows.Scan(&info.SessionID, &info.FirstMessage, &info.StartedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}
