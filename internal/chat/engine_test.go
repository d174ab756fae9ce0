package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sqlchat/sqlchat/internal/assistant"
	"github.com/sqlchat/sqlchat/internal/safety"
	"github.com/sqlchat/sqlchat/internal/session"
	"github.com/sqlchat/sqlchat/internal/warehouse"
)

type memoryStore struct {
	messages map[string][]session.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{messages: map[string][]session.Message{}}
}

func (m *memoryStore) Append(_ context.Context, sessionID, role, content string) error {
	m.messages[sessionID] = append(m.messages[sessionID], session.Message{Role: role, Content: content})
	return nil
}

func (m *memoryStore) ReadAll(_ context.Context, sessionID string) ([]session.Message, error) {
	return append([]session.Message(nil), m.messages[sessionID]...), nil
}

func (m *memoryStore) ReadAllWithTimestamps(context.Context, string) ([]session.StoredMessage, error) {
	return nil, nil
}

func (m *memoryStore) ListSessions(context.Context) ([]session.Info, error) {
	return nil, nil
}

type scriptedDecider struct {
	decisions []assistant.Decision
	calls     int
	seen      [][]session.Message
}

func (d *scriptedDecider) Decide(_ context.Context, conversation []session.Message) (assistant.Decision, error) {
	d.seen = append(d.seen, append([]session.Message(nil), conversation...))
	decision := d.decisions[d.calls%len(d.decisions)]
	d.calls++
	return decision, nil
}

type staticSynth struct{}

func (staticSynth) Summarize(_ context.Context, query string, _ []warehouse.Row) (string, error) {
	return "report for " + query, nil
}

func (staticSynth) Merge(_ context.Context, reply, query, report string, _ []warehouse.Row) (string, error) {
	return reply + " | " + report, nil
}

type stubExecutor struct {
	rows []warehouse.Row
	err  error
	sqls []string
}

func (s *stubExecutor) Execute(_ context.Context, sqlText string) ([]warehouse.Row, error) {
	s.sqls = append(s.sqls, sqlText)
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func newEngine(store session.Store, decider assistant.Decider, executor warehouse.Executor) *Engine {
	return &Engine{
		Sessions: store,
		Decider:  decider,
		Synth:    staticSynth{},
		Executor: executor,
		Gate:     safety.Gate{},
	}
}

func TestRunChatDecisionTerminatesAfterOneTurn(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{{Type: "chat", Reply: "Hello!"}}}
	engine := newEngine(store, decider, &stubExecutor{})

	outcome, err := engine.Run(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Type != "chat" || outcome.FinalMessage != "Hello!" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.LastQuery != "" {
		t.Fatalf("LastQuery = %q", outcome.LastQuery)
	}
	if len(outcome.LastResults) != 0 || len(outcome.SQLHistory) != 0 {
		t.Fatalf("outcome carried query state: %+v", outcome)
	}
	if outcome.TurnsExecuted != 1 {
		t.Fatalf("TurnsExecuted = %d", outcome.TurnsExecuted)
	}
}

func TestRunSeedsSystemPromptExactlyOnce(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{{Type: "chat", Reply: "Hello!"}}}
	engine := newEngine(store, decider, &stubExecutor{})

	if _, err := engine.Run(context.Background(), "s1", "hi"); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := engine.Run(context.Background(), "s1", "hi again"); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	systemPrompts := 0
	for _, msg := range store.messages["s1"] {
		if msg.Role == session.RoleSystem && msg.Content == assistant.IntegratedSystemPrompt {
			systemPrompts++
		}
	}
	if systemPrompts != 1 {
		t.Fatalf("system prompt seeded %d times", systemPrompts)
	}
	if store.messages["s1"][0].Role != session.RoleSystem {
		t.Fatal("system prompt is not the first message")
	}
}

func TestRunSQLThenDone(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{
		{Type: "sql", Reply: "Counting.", Query: "SELECT COUNT(*) AS count FROM Products"},
		{Type: "done", Reply: "There are 5 products."},
	}}
	executor := &stubExecutor{rows: []warehouse.Row{{"count": int64(5)}}}
	engine := newEngine(store, decider, executor)

	outcome, err := engine.Run(context.Background(), "s1", "how many products?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Type != "done" {
		t.Fatalf("Type = %q", outcome.Type)
	}
	if outcome.FinalMessage != "There are 5 products." {
		t.Fatalf("FinalMessage = %q", outcome.FinalMessage)
	}
	if outcome.TurnsExecuted != 2 {
		t.Fatalf("TurnsExecuted = %d", outcome.TurnsExecuted)
	}
	if len(outcome.SQLHistory) != 1 {
		t.Fatalf("len(SQLHistory) = %d", len(outcome.SQLHistory))
	}
	entry := outcome.SQLHistory[0]
	if entry.Turn != 1 || entry.Query != "SELECT COUNT(*) AS count FROM Products" {
		t.Fatalf("history entry = %+v", entry)
	}
	if entry.Steps != "Counting. | report for SELECT COUNT(*) AS count FROM Products" {
		t.Fatalf("Steps = %q", entry.Steps)
	}
	if len(executor.sqls) != 1 {
		t.Fatalf("executor ran %d queries", len(executor.sqls))
	}

	// The raw decision, the merged message, and the query results must all be
	// in the log so the second decision call sees them.
	log := store.messages["s1"]
	var sawRawDecision, sawResultsContext bool
	for _, msg := range log {
		if msg.Role == session.RoleAssistant && strings.Contains(msg.Content, `"type":"sql"`) {
			sawRawDecision = true
		}
		if msg.Role == session.RoleSystem && strings.Contains(msg.Content, "query_results") {
			sawResultsContext = true
			var payload map[string][]warehouse.Row
			if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
				t.Fatalf("query_results message is not JSON: %v", err)
			}
		}
	}
	if !sawRawDecision {
		t.Fatal("raw decision was not persisted")
	}
	if !sawResultsContext {
		t.Fatal("query results were not fed back as a system message")
	}
	if len(decider.seen[1]) != len(decider.seen[0])+3 {
		t.Fatalf("second decision saw %d messages, first saw %d", len(decider.seen[1]), len(decider.seen[0]))
	}
}

func TestRunRejectsNonReadOnlyQuery(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{
		{Type: "sql", Reply: "Cleaning up.", Query: "DELETE FROM Products"},
	}}
	executor := &stubExecutor{}
	engine := newEngine(store, decider, executor)

	outcome, err := engine.Run(context.Background(), "s1", "delete everything")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Type != "chat" {
		t.Fatalf("Type = %q", outcome.Type)
	}
	if !strings.Contains(outcome.FinalMessage, "non-read-only") {
		t.Fatalf("FinalMessage = %q", outcome.FinalMessage)
	}
	if outcome.TurnsExecuted != 1 {
		t.Fatalf("TurnsExecuted = %d", outcome.TurnsExecuted)
	}
	if len(executor.sqls) != 0 {
		t.Fatal("rejected query must not reach the executor")
	}
}

func TestRunFallbackOnUnrecognizedDecision(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{{Type: "plan", Reply: "hmm"}}}
	engine := newEngine(store, decider, &stubExecutor{})

	outcome, err := engine.Run(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Type != "chat" {
		t.Fatalf("Type = %q", outcome.Type)
	}
	if outcome.FinalMessage != FallbackReply {
		t.Fatalf("FinalMessage = %q", outcome.FinalMessage)
	}
	if outcome.TurnsExecuted != 1 {
		t.Fatalf("TurnsExecuted = %d", outcome.TurnsExecuted)
	}
}

func TestRunStopsAtTurnCap(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{
		{Type: "sql", Reply: "Again.", Query: "SELECT 1 AS one"},
	}}
	executor := &stubExecutor{rows: []warehouse.Row{{"one": int64(1)}}}
	engine := newEngine(store, decider, executor)

	outcome, err := engine.Run(context.Background(), "s1", "loop forever")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.TurnsExecuted != DefaultMaxTurns {
		t.Fatalf("TurnsExecuted = %d, want %d", outcome.TurnsExecuted, DefaultMaxTurns)
	}
	if len(outcome.SQLHistory) != DefaultMaxTurns {
		t.Fatalf("len(SQLHistory) = %d", len(outcome.SQLHistory))
	}
	if outcome.Type != "sql" {
		t.Fatalf("Type = %q", outcome.Type)
	}
}

func TestRunHonorsConfiguredMaxTurns(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{
		{Type: "sql", Reply: "Again.", Query: "SELECT 1 AS one"},
	}}
	executor := &stubExecutor{rows: []warehouse.Row{{"one": int64(1)}}}
	engine := newEngine(store, decider, executor)
	engine.MaxTurns = 3

	outcome, err := engine.Run(context.Background(), "s1", "loop forever")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.TurnsExecuted != 3 {
		t.Fatalf("TurnsExecuted = %d", outcome.TurnsExecuted)
	}
}

func TestRunPropagatesExecutionFailure(t *testing.T) {
	store := newMemoryStore()
	decider := &scriptedDecider{decisions: []assistant.Decision{
		{Type: "sql", Reply: "Counting.", Query: "SELECT * FROM Nowhere"},
	}}
	executor := &stubExecutor{err: errors.New("table Nowhere does not exist")}
	engine := newEngine(store, decider, executor)

	_, err := engine.Run(context.Background(), "s1", "query a missing table")
	if err == nil {
		t.Fatal("expected execution error")
	}
	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("error = %v, want *QueryError", err)
	}
	if queryErr.Query != "SELECT * FROM Nowhere" {
		t.Fatalf("QueryError.Query = %q", queryErr.Query)
	}
}
