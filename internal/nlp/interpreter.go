package nlp

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/actions"
)

// Message is one prior turn of the conversation, passed to the interpreter
// for context.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Proposal is the interpreter's structured reading of a free-text message.
// It is advisory: the user must confirm before anything executes.
type Proposal struct {
	Type       actions.ActionType `json:"action_type"`
	Params     actions.Params     `json:"extracted_params"`
	Confidence float64            `json:"confidence_score"`
}

// Interpreter turns free text into an action proposal. A (nil, nil) return
// means no actionable intent was found. Implementations must honor the
// context deadline; the shipped implementation is the deterministic
// RuleInterpreter, and an LLM-backed one can satisfy the same interface.
type Interpreter interface {
	Interpret(ctx context.Context, userID uuid.UUID, input string, history []Message) (*Proposal, error)
}
