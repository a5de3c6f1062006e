package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/metrics"
	"github.com/taskpilot/taskpilot/internal/tasks"
)

// Notifier receives a fire-and-forget signal after an action executes.
// Implementations must not block; delivery is at-most-once and never affects
// the pipeline outcome.
type Notifier interface {
	ActionExecuted(userID uuid.UUID, action *PendingAction)
}

// Pipeline is the propose/confirm/reject/execute state machine. An
// AI-interpreted mutation is held pending until its owner confirms it;
// confirm triggers exactly one execution against the task service, and any
// execution failure is captured into the record instead of surfacing as an
// error from Confirm.
type Pipeline struct {
	store    Store
	tasks    *tasks.Service
	cfg      config.AIConfig
	notifier Notifier

	// now is swapped out in tests.
	now func() time.Time
}

func NewPipeline(store Store, taskSvc *tasks.Service, cfg config.AIConfig, notifier Notifier) *Pipeline {
	return &Pipeline{
		store:    store,
		tasks:    taskSvc,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
	}
}

// Propose validates and persists a new pending action. Nothing is persisted
// when validation fails, so Confirm and Reject can never observe a
// half-formed record.
func (p *Pipeline) Propose(ctx context.Context, userID uuid.UUID, actionType ActionType, params Params, confidence float64) (*PendingAction, error) {
	if !p.cfg.Enabled {
		return nil, ErrDisabled
	}
	if !actionType.Valid() {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, actionType)
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0, 1]", ErrValidation, confidence)
	}
	if err := params.ValidateFor(actionType); err != nil {
		return nil, err
	}

	action := &PendingAction{
		ID:                 uuid.New(),
		UserID:             userID,
		Type:               actionType,
		Params:             params,
		Confidence:         confidence,
		ConfirmationStatus: ConfirmationPending,
		ExecutedStatus:     ExecutedNone,
		CreatedAt:          p.now(),
	}
	if err := p.store.Create(ctx, action); err != nil {
		return nil, fmt.Errorf("persisting pending action: %w", err)
	}

	metrics.PendingActionsProposed.Inc()
	return action, nil
}

// Confirm transitions the action to confirmed and executes it exactly once.
// Of two concurrent confirms, one wins the CAS and runs the execution; the
// other gets ErrInvalidState. The returned action always reflects the
// execution outcome, success or failed.
func (p *Pipeline) Confirm(ctx context.Context, actionID, callerID uuid.UUID) (*PendingAction, error) {
	action, err := p.authorize(ctx, actionID, callerID)
	if err != nil {
		return nil, err
	}

	confirmedAt := p.now()
	won, err := p.store.ConfirmCAS(ctx, actionID, confirmedAt)
	if err != nil {
		return nil, fmt.Errorf("confirming action: %w", err)
	}
	if !won {
		return nil, ErrInvalidState
	}

	action.ConfirmationStatus = ConfirmationConfirmed
	action.ConfirmedAt = &confirmedAt
	action.ExecutedStatus = ExecutedExecuting

	p.execute(ctx, action)
	p.saveExecution(ctx, action)

	metrics.ActionExecutionsTotal.WithLabelValues(string(action.Type), string(action.ExecutedStatus)).Inc()
	if action.ExecutedStatus == ExecutedSuccess && p.notifier != nil {
		p.notifier.ActionExecuted(action.UserID, action)
	}
	return action, nil
}

// Reject terminally declines the action. The task service is never touched
// and executed_status stays not_executed.
func (p *Pipeline) Reject(ctx context.Context, actionID, callerID uuid.UUID) (*PendingAction, error) {
	action, err := p.authorize(ctx, actionID, callerID)
	if err != nil {
		return nil, err
	}

	rejectedAt := p.now()
	won, err := p.store.RejectCAS(ctx, actionID, rejectedAt)
	if err != nil {
		return nil, fmt.Errorf("rejecting action: %w", err)
	}
	if !won {
		return nil, ErrInvalidState
	}

	action.ConfirmationStatus = ConfirmationRejected
	action.ConfirmedAt = &rejectedAt
	return action, nil
}

func (p *Pipeline) ListPending(ctx context.Context, userID uuid.UUID) ([]*PendingAction, error) {
	return p.store.ListPending(ctx, userID)
}

// Get returns the action after the usual not-found and ownership checks,
// for audit/history display of terminal actions.
func (p *Pipeline) Get(ctx context.Context, actionID, callerID uuid.UUID) (*PendingAction, error) {
	action, err := p.store.GetByID(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("fetching action: %w", err)
	}
	if action == nil {
		return nil, ErrNotFound
	}
	if action.UserID != callerID {
		return nil, ErrForbidden
	}
	return action, nil
}

func (p *Pipeline) authorize(ctx context.Context, actionID, callerID uuid.UUID) (*PendingAction, error) {
	action, err := p.Get(ctx, actionID, callerID)
	if err != nil {
		return nil, err
	}
	if action.ConfirmationStatus != ConfirmationPending {
		return nil, ErrInvalidState
	}
	return action, nil
}

// saveExecution persists the execution outcome. At this point the task
// mutation has already been applied, so a persistence failure must not bubble
// up as a Confirm error and invite a re-propose of the same mutation. Retry
// once, then log; the returned action still carries the real outcome even if
// the stored record stays at executing.
func (p *Pipeline) saveExecution(ctx context.Context, action *PendingAction) {
	err := p.store.SaveExecution(ctx, action)
	if err == nil {
		return
	}
	slog.Warn("saving execution outcome, retrying",
		"action_id", action.ID,
		"error", err,
	)
	if err := p.store.SaveExecution(ctx, action); err != nil {
		slog.Error("saving execution outcome failed, record left at executing",
			"action_id", action.ID,
			"action_type", action.Type,
			"user_id", action.UserID,
			"executed_status", action.ExecutedStatus,
			"error", err,
		)
	}
}

// execute dispatches to the task service and folds the outcome into the
// action record. Downstream failures (not found, ownership, ambiguity,
// store errors) become executed_status=failed with the message preserved.
func (p *Pipeline) execute(ctx context.Context, action *PendingAction) {
	result, relatedID, err := p.dispatch(ctx, action)

	executedAt := p.now()
	action.ExecutedAt = &executedAt
	action.RelatedTaskID = relatedID

	if err != nil {
		action.ExecutedStatus = ExecutedFailed
		action.ErrorMessage = err.Error()
		slog.Warn("action execution failed",
			"action_id", action.ID,
			"action_type", action.Type,
			"user_id", action.UserID,
			"error", err,
		)
		return
	}

	action.ExecutedStatus = ExecutedSuccess
	action.Result = result
}

func (p *Pipeline) dispatch(ctx context.Context, action *PendingAction) (json.RawMessage, *uuid.UUID, error) {
	userID := action.UserID

	switch action.Type {
	case ActionCreate:
		task, err := p.tasks.Create(ctx, userID, action.Params.Create.Title, action.Params.Create.Description)
		if err != nil {
			return nil, nil, err
		}
		return marshalResult(task), &task.ID, nil

	case ActionUpdate:
		params := action.Params.Update
		task, err := p.tasks.Resolve(ctx, userID, params.Target)
		if err != nil {
			return nil, nil, err
		}
		updated, err := p.tasks.Update(ctx, userID, task.ID, &tasks.UpdateTaskRequest{
			Title:       params.Title,
			Description: params.Description,
		})
		if err != nil {
			return nil, &task.ID, err
		}
		return marshalResult(updated), &task.ID, nil

	case ActionDelete:
		task, err := p.tasks.Resolve(ctx, userID, action.Params.Delete.Target)
		if err != nil {
			return nil, nil, err
		}
		if err := p.tasks.Delete(ctx, userID, task.ID); err != nil {
			return nil, &task.ID, err
		}
		return nil, &task.ID, nil

	case ActionComplete:
		task, err := p.tasks.Resolve(ctx, userID, action.Params.Complete.Target)
		if err != nil {
			return nil, nil, err
		}
		updated, err := p.tasks.Complete(ctx, userID, task.ID)
		if err != nil {
			return nil, &task.ID, err
		}
		return marshalResult(updated), &task.ID, nil

	case ActionQuery:
		list, err := p.tasks.Query(ctx, userID, action.Params.Query.Filter())
		if err != nil {
			return nil, nil, err
		}
		return marshalResult(list), nil, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, action.Type)
}

func marshalResult(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling action result", "error", err)
		return nil
	}
	return data
}
