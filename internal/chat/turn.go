package chat

import (
	"strings"

	"github.com/sqlchat/sqlchat/internal/assistant"
)

type TurnKind int

const (
	KindChat TurnKind = iota
	KindSQL
	KindDone
)

func (k TurnKind) String() string {
	switch k {
	case KindSQL:
		return "sql"
	case KindDone:
		return "done"
	default:
		return "chat"
	}
}

// FallbackReply is the fixed answer for decisions the interpreter cannot
// classify. Malformed decisions terminate the loop; they are never retried.
const FallbackReply = "Got an unexpected response."

// Turn is the interpreted form of one decision. A chat or done turn always
// carries an empty query; a sql turn always carries a non-blank one.
type Turn struct {
	Kind     TurnKind
	Reply    string
	Query    string
	Fallback bool
}

// Classify maps a raw decision onto exactly one turn kind. A sql decision
// with a blank query and any unrecognized type degrade to the terminal
// fallback chat turn.
func Classify(decision assistant.Decision) Turn {
	switch decision.Type {
	case assistant.DecisionChat:
		return Turn{Kind: KindChat, Reply: decision.Reply}
	case assistant.DecisionSQL:
		if strings.TrimSpace(decision.Query) == "" {
			return Turn{Kind: KindChat, Reply: FallbackReply, Fallback: true}
		}
		return Turn{Kind: KindSQL, Reply: decision.Reply, Query: decision.Query}
	case assistant.DecisionDone:
		return Turn{Kind: KindDone, Reply: decision.Reply}
	default:
		return Turn{Kind: KindChat, Reply: FallbackReply, Fallback: true}
	}
}
