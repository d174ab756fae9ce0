// Package chat runs the multi-turn conversation loop between the user, the
// LLM decision step, and the warehouse.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sqlchat/sqlchat/internal/assistant"
	"github.com/sqlchat/sqlchat/internal/observability"
	"github.com/sqlchat/sqlchat/internal/safety"
	"github.com/sqlchat/sqlchat/internal/session"
	"github.com/sqlchat/sqlchat/internal/warehouse"
)

// DefaultMaxTurns caps one orchestration run. Reaching the cap is a soft
// stop, not an error.
const DefaultMaxTurns = 8

const nonReadOnlyMessage = "Error: Attempted non-read-only query."

// HistoryEntry records one executed sql turn for the response payload.
type HistoryEntry struct {
	Turn    int             `json:"turn"`
	Query   string          `json:"query"`
	Results []warehouse.Row `json:"results"`
	Steps   string          `json:"steps"`
}

// Outcome is the final state of one orchestration run, returned to the HTTP
// boundary as-is.
type Outcome struct {
	Type          string          `json:"type"`
	FinalMessage  string          `json:"final_message"`
	LastQuery     string          `json:"last_query"`
	LastResults   []warehouse.Row `json:"last_results"`
	SQLHistory    []HistoryEntry  `json:"sql_history"`
	TurnsExecuted int             `json:"turns_executed"`
}

// QueryError marks a warehouse execution failure so the boundary can report
// the offending statement.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("execute query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Engine drives the AwaitingDecision -> {Responding, Querying, Terminated}
// state machine. The session log is the single source of truth: it is
// re-read at the start of every run and never cached across requests.
type Engine struct {
	Sessions session.Store
	Decider  assistant.Decider
	Synth    assistant.Synthesizer
	Executor warehouse.Executor
	Gate     safety.Gate
	MaxTurns int
	Logger   *slog.Logger
}

func (e *Engine) Run(ctx context.Context, sessionID, message string) (Outcome, error) {
	conversation, err := e.Sessions.ReadAll(ctx, sessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load conversation: %w", err)
	}

	// Seed the behavioral contract exactly once, only for a brand-new session.
	if len(conversation) == 0 {
		if err := e.append(ctx, sessionID, &conversation, session.RoleSystem, assistant.IntegratedSystemPrompt); err != nil {
			return Outcome{}, err
		}
	}
	if err := e.append(ctx, sessionID, &conversation, session.RoleUser, message); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		LastResults: []warehouse.Row{},
		SQLHistory:  []HistoryEntry{},
	}
	maxTurns := e.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	done := false
	for !done && outcome.TurnsExecuted < maxTurns {
		outcome.TurnsExecuted++

		decision, err := e.Decider.Decide(ctx, conversation)
		if err != nil {
			return Outcome{}, fmt.Errorf("decision step: %w", err)
		}

		// The full serialized decision is persisted, not just the reply, so
		// the next decision call sees exactly what was decided previously.
		rawDecision, err := json.Marshal(decision)
		if err != nil {
			return Outcome{}, fmt.Errorf("serialize decision: %w", err)
		}
		if err := e.append(ctx, sessionID, &conversation, session.RoleAssistant, string(rawDecision)); err != nil {
			return Outcome{}, err
		}

		outcome.Type = decision.Type
		outcome.LastQuery = decision.Query

		turn := Classify(decision)
		e.log().DebugContext(ctx, "classified turn",
			slog.String("session_id", sessionID),
			slog.Int("turn", outcome.TurnsExecuted),
			slog.String("kind", turn.Kind.String()),
		)

		switch turn.Kind {
		case KindChat:
			outcome.FinalMessage = turn.Reply
			if turn.Fallback {
				outcome.Type = assistant.DecisionChat
			}
			done = true

		case KindDone:
			outcome.FinalMessage = turn.Reply
			done = true

		case KindSQL:
			if !e.Gate.IsReadOnly(turn.Query) {
				observability.IncrementGateRejections()
				outcome.FinalMessage = nonReadOnlyMessage
				outcome.Type = assistant.DecisionChat
				done = true
				break
			}

			results, err := e.Executor.Execute(ctx, turn.Query)
			if err != nil {
				return Outcome{}, &QueryError{Query: turn.Query, Err: err}
			}
			observability.IncrementChatQueries()
			outcome.LastResults = results

			report, err := e.Synth.Summarize(ctx, turn.Query, results)
			if err != nil {
				return Outcome{}, fmt.Errorf("summarize results: %w", err)
			}
			merged, err := e.Synth.Merge(ctx, turn.Reply, turn.Query, report, results)
			if err != nil {
				return Outcome{}, fmt.Errorf("merge outputs: %w", err)
			}

			if err := e.append(ctx, sessionID, &conversation, session.RoleAssistant, merged); err != nil {
				return Outcome{}, err
			}
			resultsPayload, err := json.Marshal(map[string]any{"query_results": results})
			if err != nil {
				return Outcome{}, fmt.Errorf("serialize query results: %w", err)
			}
			if err := e.append(ctx, sessionID, &conversation, session.RoleSystem, string(resultsPayload)); err != nil {
				return Outcome{}, err
			}

			outcome.SQLHistory = append(outcome.SQLHistory, HistoryEntry{
				Turn:    outcome.TurnsExecuted,
				Query:   turn.Query,
				Results: results,
				Steps:   merged,
			})
			outcome.FinalMessage = merged
		}
	}

	observability.ObserveChatRun(outcome.Type, outcome.TurnsExecuted)
	return outcome, nil
}

func (e *Engine) append(ctx context.Context, sessionID string, conversation *[]session.Message, role, content string) error {
	if err := e.Sessions.Append(ctx, sessionID, role, content); err != nil {
		return fmt.Errorf("append %s message: %w", role, err)
	}
	*conversation = append(*conversation, session.Message{Role: role, Content: content})
	return nil
}

func (e *Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
