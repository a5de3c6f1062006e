package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "TASKPILOT_EVENTS"
)

// Subject constants.
const (
	SubjectActionEvent = "taskpilot.events.action"
	SubjectAuditEvent  = "taskpilot.events.audit"
)

// ActionEvent is published when a pending action reaches a terminal
// execution state.
type ActionEvent struct {
	ActionID      uuid.UUID  `json:"action_id"`
	UserID        uuid.UUID  `json:"user_id"`
	ActionType    string     `json:"action_type"`
	Status        string     `json:"status"` // success, failed
	RelatedTaskID *uuid.UUID `json:"related_task_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	EventType    string    `json:"event_type"` // e.g., "action_executed", "quota_denied"
	Severity     string    `json:"severity"`   // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
