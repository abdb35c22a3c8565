package notification

import (
	"time"

	"github.com/google/uuid"
)

// LogAction identifies the lifecycle event an audit entry describes.
type LogAction string

const (
	ActionCreated    LogAction = "created"
	ActionQueued     LogAction = "queued"
	ActionProcessing LogAction = "processing"
	ActionSent       LogAction = "sent"
	ActionDelivered  LogAction = "delivered"
	ActionRead       LogAction = "read"
	ActionFailed     LogAction = "failed"
	ActionRetry      LogAction = "retry"
)

// LogEntry is one immutable, append-only audit record of a notification state
// transition. Entries are never updated or deleted.
type LogEntry struct {
	ID             uuid.UUID      `json:"id"`
	NotificationID uuid.UUID      `json:"notification_id"`
	Action         LogAction      `json:"action"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewLogEntry builds an audit entry for a notification outside of a state
// transition, e.g. the created or processing markers.
func NewLogEntry(notificationID uuid.UUID, action LogAction, message string, metadata map[string]any) *LogEntry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &LogEntry{
		ID:             uuid.New(),
		NotificationID: notificationID,
		Action:         action,
		Message:        message,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
}
