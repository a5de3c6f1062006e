package actions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists PendingAction records. The two CAS operations are the
// linearization points of the state machine: each succeeds for exactly one
// caller per action, so concurrent confirms (or a confirm racing a reject)
// resolve to one winner without locks above the store.
type Store interface {
	Create(ctx context.Context, action *PendingAction) error

	// GetByID returns (nil, nil) when no such action exists.
	GetByID(ctx context.Context, id uuid.UUID) (*PendingAction, error)

	// ListPending returns the user's pending actions, newest first.
	ListPending(ctx context.Context, userID uuid.UUID) ([]*PendingAction, error)

	// ConfirmCAS atomically moves pending -> confirmed and marks the action
	// executing. Returns false if the action was no longer pending.
	ConfirmCAS(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// RejectCAS atomically moves pending -> rejected. Returns false if the
	// action was no longer pending. executed_status is untouched.
	RejectCAS(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// SaveExecution records the terminal execution outcome: executed_status,
	// related_task_id, result, error_message, executed_at.
	SaveExecution(ctx context.Context, action *PendingAction) error
}
