// Package assistant wraps the external LLM capabilities the chat loop
// consumes: the per-turn decision step, result reporting, and one-shot
// NL-to-SQL translation.
package assistant

import (
	"context"

	"github.com/sqlchat/sqlchat/internal/session"
	"github.com/sqlchat/sqlchat/internal/warehouse"
)

const (
	DecisionChat = "chat"
	DecisionSQL  = "sql"
	DecisionDone = "done"
)

// Decision is the structured object the model returns for one turn. Type is
// expected to be one of chat/sql/done; anything else is classified into the
// fallback path by the turn interpreter, never retried.
type Decision struct {
	Type  string `json:"type"`
	Reply string `json:"reply"`
	Query string `json:"query"`
}

// Decider produces one Decision per orchestration turn from the full ordered
// conversation.
type Decider interface {
	Decide(ctx context.Context, conversation []session.Message) (Decision, error)
}

// Synthesizer turns query results into prose and merges partial outputs into
// one user-facing message.
type Synthesizer interface {
	Summarize(ctx context.Context, query string, results []warehouse.Row) (string, error)
	Merge(ctx context.Context, reply, query, report string, results []warehouse.Row) (string, error)
}

// Translator converts a natural language request into a single SQL statement.
type Translator interface {
	Translate(ctx context.Context, naturalQuery string) (string, error)
}
