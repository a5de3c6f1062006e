package actions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionDelete   ActionType = "delete"
	ActionComplete ActionType = "complete"
	ActionQuery    ActionType = "query"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionCreate, ActionUpdate, ActionDelete, ActionComplete, ActionQuery:
		return true
	}
	return false
}

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationRejected  ConfirmationStatus = "rejected"
)

type ExecutedStatus string

const (
	ExecutedNone      ExecutedStatus = "not_executed"
	ExecutedExecuting ExecutedStatus = "executing"
	ExecutedSuccess   ExecutedStatus = "success"
	ExecutedFailed    ExecutedStatus = "failed"
)

// PendingAction is an AI-interpreted task mutation held until the owning
// user explicitly confirms or rejects it. Confirmation and execution state
// advance independently: confirmation_status moves pending -> confirmed or
// rejected exactly once, and executed_status leaves not_executed only after
// a confirm.
type PendingAction struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"user_id"`
	Type               ActionType         `json:"action_type"`
	Params             Params             `json:"extracted_params"`
	Confidence         float64            `json:"confidence_score"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status"`
	ExecutedStatus     ExecutedStatus     `json:"executed_status"`
	RelatedTaskID      *uuid.UUID         `json:"related_task_id,omitempty"`
	Result             json.RawMessage    `json:"result,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	ConfirmedAt        *time.Time         `json:"confirmed_at,omitempty"`
	ExecutedAt         *time.Time         `json:"executed_at,omitempty"`
}
