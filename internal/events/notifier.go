package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/actions"
	"github.com/taskpilot/taskpilot/internal/nats"
)

const publishTimeout = 2 * time.Second

// ActionNotifier bridges the pipeline's execution hook to the in-process hub
// (SSE push) and the NATS event stream (audit trail). Both deliveries are
// best-effort; failures are logged and swallowed so they can never affect
// the pipeline outcome.
type ActionNotifier struct {
	hub       *Hub
	publisher *nats.Publisher
}

func NewActionNotifier(hub *Hub, publisher *nats.Publisher) *ActionNotifier {
	return &ActionNotifier{hub: hub, publisher: publisher}
}

func (n *ActionNotifier) ActionExecuted(userID uuid.UUID, action *actions.PendingAction) {
	if n.hub != nil {
		n.hub.Publish(userID, "action_executed", action)
	}

	if n.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		now := time.Now().UTC()

		err := n.publisher.PublishActionEvent(ctx, nats.ActionEvent{
			ActionID:      action.ID,
			UserID:        userID,
			ActionType:    string(action.Type),
			Status:        string(action.ExecutedStatus),
			RelatedTaskID: action.RelatedTaskID,
			Timestamp:     now,
		})
		if err != nil {
			slog.Warn("publishing action event", "action_id", action.ID, "error", err)
		}

		err = n.publisher.PublishAuditEvent(ctx, nats.AuditEvent{
			UserID:       userID,
			EventType:    "action_executed",
			Severity:     "info",
			ResourceType: "action",
			ResourceID:   action.ID.String(),
			Details:      string(action.Type) + " action executed",
			Timestamp:    now,
		})
		if err != nil {
			slog.Warn("publishing audit event", "action_id", action.ID, "error", err)
		}
	}()
}
