package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/taskpilot/taskpilot/internal/nats"
)

func TestAuditEventDeserialization(t *testing.T) {
	userID := uuid.New()
	actionID := uuid.New()

	event := inats.AuditEvent{
		UserID:       userID,
		EventType:    "action_executed",
		Severity:     "info",
		ResourceType: "action",
		ResourceID:   actionID.String(),
		Details:      "create action executed successfully",
		Timestamp:    time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded inats.AuditEvent
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, userID, decoded.UserID)
	assert.Equal(t, "action_executed", decoded.EventType)
	assert.Equal(t, "info", decoded.Severity)
	assert.Equal(t, "action", decoded.ResourceType)
	assert.Equal(t, actionID.String(), decoded.ResourceID)
}

func TestConvertEventToLog_ValidResourceID(t *testing.T) {
	actionID := uuid.New()
	event := inats.AuditEvent{
		UserID:       uuid.New(),
		EventType:    "action_executed",
		Severity:     "info",
		ResourceType: "action",
		ResourceID:   actionID.String(),
		Details:      "delete action executed",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Equal(t, event.UserID, log.UserID)
	assert.Equal(t, "action_executed", log.EventType)
	assert.Equal(t, "info", log.Severity)
	assert.Equal(t, "action", log.ResourceType)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, actionID, *log.ResourceID)
	assert.Contains(t, string(log.Details), "delete action executed")
}

func TestConvertEventToLog_NonUUIDResourceID(t *testing.T) {
	event := inats.AuditEvent{
		UserID:       uuid.New(),
		EventType:    "quota_denied",
		Severity:     "warn",
		ResourceType: "quota",
		ResourceID:   "day",
		Details:      "daily limit reached",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Nil(t, log.ResourceID, "non-UUID resource id is dropped, not mangled")
	assert.Equal(t, "quota_denied", log.EventType)
}
