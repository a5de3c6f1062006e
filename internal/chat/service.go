package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/actions"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/metrics"
	"github.com/taskpilot/taskpilot/internal/nlp"
	"github.com/taskpilot/taskpilot/internal/preferences"
	"github.com/taskpilot/taskpilot/internal/quota"
)

var (
	// ErrInputRejected means the message tripped the prompt-injection guard.
	ErrInputRejected = errors.New("message rejected by input guard")

	// ErrUpstream means the interpreter failed or timed out. No pending
	// action exists for the turn.
	ErrUpstream = errors.New("interpretation failed")
)

// TurnResult is the outcome of one chat turn. ProposedAction is nil when the
// message carried no actionable intent.
type TurnResult struct {
	Reply          string                 `json:"reply"`
	ProposedAction *actions.PendingAction `json:"proposed_action,omitempty"`
	Quota          quota.Status           `json:"quota"`
}

// Service orchestrates a chat turn: consume quota, guard the input,
// interpret it, and hold the resulting action for confirmation. The quota is
// consumed up front and atomically, so concurrent turns can never overrun
// the limit; a turn that later fails interpretation has still spent one
// request.
type Service struct {
	quota       *quota.Service
	pipeline    *actions.Pipeline
	interpreter nlp.Interpreter
	contexts    *ContextStore
	prefs       *preferences.Service
	cfg         config.AIConfig
}

func NewService(quotaSvc *quota.Service, pipeline *actions.Pipeline, interpreter nlp.Interpreter, contexts *ContextStore, prefs *preferences.Service, cfg config.AIConfig) *Service {
	return &Service{
		quota:       quotaSvc,
		pipeline:    pipeline,
		interpreter: interpreter,
		contexts:    contexts,
		prefs:       prefs,
		cfg:         cfg,
	}
}

func (s *Service) Turn(ctx context.Context, userID uuid.UUID, message string) (*TurnResult, error) {
	if !s.cfg.Enabled {
		return nil, actions.ErrDisabled
	}
	// The per-user switch sits next to the global one: a turn for a user who
	// opted out consumes no quota.
	if s.prefs != nil && !s.prefs.Enabled(ctx, userID) {
		return nil, actions.ErrDisabled
	}

	// Both windows are consumed before any interpretation happens.
	if _, err := s.consumeQuota(ctx, userID, quota.PeriodHour); err != nil {
		return nil, err
	}
	dayStatus, err := s.consumeQuota(ctx, userID, quota.PeriodDay)
	if err != nil {
		return nil, err
	}

	if matched := nlp.DetectInjection(message); len(matched) > 0 {
		slog.Warn("prompt injection attempt blocked",
			"user_id", userID,
			"patterns", matched,
		)
		metrics.ChatTurnsTotal.WithLabelValues("rejected_input").Inc()
		return nil, ErrInputRejected
	}

	// Learned shortcuts resolve before the interpreter: "add usual standup"
	// expands straight into a create proposal.
	if s.prefs != nil {
		if name, shortcut := s.prefs.Recognize(ctx, userID, message); shortcut != nil {
			return s.proposeShortcut(ctx, userID, message, name, shortcut, dayStatus)
		}
	}

	history := s.history(ctx, userID)

	proposal, err := s.interpret(ctx, userID, message, history)
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	result := &TurnResult{Quota: dayStatus}
	if proposal == nil {
		result.Reply = "I couldn't find a task action in that message. Try something like \"add buy groceries\" or \"show my pending tasks\"."
		metrics.ChatTurnsTotal.WithLabelValues("no_intent").Inc()
		s.remember(ctx, userID, message, result.Reply)
		return result, nil
	}

	action, err := s.pipeline.Propose(ctx, userID, proposal.Type, proposal.Params, proposal.Confidence)
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("propose_error").Inc()
		return nil, err
	}

	result.ProposedAction = action
	result.Reply = proposalReply(action)
	metrics.ChatTurnsTotal.WithLabelValues("proposed").Inc()
	s.remember(ctx, userID, message, result.Reply)
	return result, nil
}

func (s *Service) proposeShortcut(ctx context.Context, userID uuid.UUID, message, name string, shortcut *preferences.Shortcut, dayStatus quota.Status) (*TurnResult, error) {
	params := actions.Params{Create: &actions.CreateParams{
		Title:       shortcut.Title,
		Description: shortcut.Description,
	}}
	action, err := s.pipeline.Propose(ctx, userID, actions.ActionCreate, params, 0.95)
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("propose_error").Inc()
		return nil, err
	}

	result := &TurnResult{
		Quota:          dayStatus,
		ProposedAction: action,
		Reply:          fmt.Sprintf("Using your %q shortcut: I'd like to create the task %q. Confirm to proceed.", name, shortcut.Title),
	}
	metrics.ChatTurnsTotal.WithLabelValues("proposed").Inc()
	s.remember(ctx, userID, message, result.Reply)
	return result, nil
}

func (s *Service) consumeQuota(ctx context.Context, userID uuid.UUID, period quota.Period) (quota.Status, error) {
	st, err := s.quota.CheckAndIncrement(ctx, userID, period)
	if err != nil {
		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			metrics.QuotaDenialsTotal.WithLabelValues(string(period)).Inc()
			metrics.ChatTurnsTotal.WithLabelValues("quota_denied").Inc()
		}
		return st, err
	}
	return st, nil
}

// interpret runs the interpreter under its configured deadline.
func (s *Service) interpret(ctx context.Context, userID uuid.UUID, message string, history []nlp.Message) (*nlp.Proposal, error) {
	timeout := s.cfg.InterpretTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.interpreter.Interpret(ctx, userID, message, history)
}

// history fetches recent turns best-effort; a context-store failure costs
// only interpretation quality, never the turn.
func (s *Service) history(ctx context.Context, userID uuid.UUID) []nlp.Message {
	if s.contexts == nil {
		return nil
	}
	history, err := s.contexts.Recent(ctx, userID, s.cfg.ContextMessages)
	if err != nil {
		slog.Warn("fetching conversation context", "user_id", userID, "error", err)
		return nil
	}
	return history
}

func (s *Service) remember(ctx context.Context, userID uuid.UUID, userMsg, reply string) {
	if s.contexts == nil {
		return
	}
	for _, msg := range []nlp.Message{
		{Role: "user", Content: userMsg},
		{Role: "assistant", Content: reply},
	} {
		if err := s.contexts.Append(ctx, userID, msg, s.cfg.ContextMessages, s.cfg.ContextTTL); err != nil {
			slog.Warn("appending conversation context", "user_id", userID, "error", err)
			return
		}
	}
}

func proposalReply(action *actions.PendingAction) string {
	switch action.Type {
	case actions.ActionCreate:
		return fmt.Sprintf("I'd like to create the task %q. Confirm to proceed.", action.Params.Create.Title)
	case actions.ActionUpdate:
		return fmt.Sprintf("I'd like to update the task matching %q. Confirm to proceed.", action.Params.Update.Target)
	case actions.ActionDelete:
		return fmt.Sprintf("I'd like to delete the task matching %q. Confirm to proceed.", action.Params.Delete.Target)
	case actions.ActionComplete:
		return fmt.Sprintf("I'd like to mark the task matching %q as done. Confirm to proceed.", action.Params.Complete.Target)
	case actions.ActionQuery:
		return "I'd like to look up your tasks. Confirm to proceed."
	}
	return "Confirm to proceed."
}
