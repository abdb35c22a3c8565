package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage handles notification persistence. Notifications are never deleted:
// they are retained as audit records even after processing completes.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a notification by id.
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)

	// Update persists the current state of a notification.
	Update(ctx context.Context, n *Notification) error

	// AppendLog stores one immutable audit entry.
	AppendLog(ctx context.Context, entry *LogEntry) error

	// ListLogs returns the audit trail of a notification, oldest first.
	ListLogs(ctx context.Context, notificationID uuid.UUID) ([]LogEntry, error)

	// ListSentOn returns every notification whose SentAt falls on the given
	// calendar date (UTC). Used by the statistics aggregator.
	ListSentOn(ctx context.Context, date time.Time) ([]Notification, error)

	// ListFailedOn returns every notification in the failed status whose
	// last update falls on the given calendar date (UTC). Used by the
	// statistics aggregator.
	ListFailedOn(ctx context.Context, date time.Time) ([]Notification, error)

	// ListByRecipient returns the notification history of one recipient,
	// newest first, limited to limit entries (0 means no limit).
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]Notification, error)
}
