package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestAppend(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO conversation_message (session_id, role, content)
VALUES ($1, $2, $3)`)).
		WithArgs("s1", "user", "hi").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Append(context.Background(), "s1", "user", "hi"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestAppendPropagatesStorageFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO conversation_message (session_id, role, content)
VALUES ($1, $2, $3)`)).
		WithArgs("s1", "assistant", "x").
		WillReturnError(errors.New("disk full"))

	if err := store.Append(context.Background(), "s1", "assistant", "x"); err == nil {
		t.Fatal("expected storage error")
	}
	assertSQLMock(t, mock)
}

func TestReadAllPreservesAppendOrder(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT role, content
FROM conversation_message
WHERE session_id = $1
ORDER BY created_at ASC, message_id ASC`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "content"}).
			AddRow("system", "contract").
			AddRow("user", "hi").
			AddRow("assistant", `{"type":"chat"}`))

	messages, err := store.ReadAll(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("len(messages) = %d", len(messages))
	}
	if messages[0].Role != "system" || messages[1].Role != "user" || messages[2].Role != "assistant" {
		t.Fatalf("message order = %#v", messages)
	}
	assertSQLMock(t, mock)
}

func TestReadAllUnknownSessionReturnsEmpty(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT role, content
FROM conversation_message
WHERE session_id = $1
ORDER BY created_at ASC, message_id ASC`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"role", "content"}))

	messages, err := store.ReadAll(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if messages == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(messages) != 0 {
		t.Fatalf("len(messages) = %d", len(messages))
	}
	assertSQLMock(t, mock)
}

func TestReadAllWithTimestamps(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT role, content, created_at
FROM conversation_message
WHERE session_id = $1
ORDER BY created_at ASC, message_id ASC`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "content", "created_at"}).
			AddRow("user", "hi", now))

	messages, err := store.ReadAllWithTimestamps(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ReadAllWithTimestamps() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("len(messages) = %d", len(messages))
	}
	if !messages[0].CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", messages[0].CreatedAt, now)
	}
	assertSQLMock(t, mock)
}

func TestListSessions(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT session_id, content, created_at FROM (
    SELECT DISTINCT ON (session_id) session_id, content, created_at
    FROM conversation_message
    WHERE role = 'user'
    ORDER BY session_id, created_at ASC, message_id ASC
) AS first_messages
ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "content", "created_at"}).
			AddRow("s2", "later question", now).
			AddRow("s1", "hi", now.Add(-time.Hour)))

	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d", len(sessions))
	}
	if sessions[0].SessionID != "s2" || sessions[0].FirstMessage != "later question" {
		t.Fatalf("sessions[0] = %#v", sessions[0])
	}
	assertSQLMock(t, mock)
}
