// Package session defines the durable conversation log backing chat sessions.
package session

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a session's ordered conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StoredMessage carries the insertion timestamp for external display.
type StoredMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Info summarizes a session for listing: the id and the first user message.
type Info struct {
	SessionID    string    `json:"sessionId"`
	FirstMessage string    `json:"firstMessage"`
	StartedAt    time.Time `json:"startedAt"`
}

// Store is an append-only conversation log. Sessions are created implicitly
// by the first append under an id; reads of unknown sessions return empty
// slices, not errors.
type Store interface {
	Append(ctx context.Context, sessionID, role, content string) error
	ReadAll(ctx context.Context, sessionID string) ([]Message, error)
	ReadAllWithTimestamps(ctx context.Context, sessionID string) ([]StoredMessage, error)
	ListSessions(ctx context.Context) ([]Info, error)
}
