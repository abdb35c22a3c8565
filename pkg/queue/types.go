package queue

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders queue entries. Higher values are claimed first; entries of
// equal priority are claimed earliest ProcessAt first.
type Priority int8

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3

	PriorityDefault = PriorityNormal
)

// Valid checks if the priority is within valid range.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Entry is one pending delivery in the queue. An entry references exactly one
// notification; at most one unclaimed or claimed entry exists per
// notification at a time.
type Entry struct {
	ID             uuid.UUID  `json:"id"`
	NotificationID uuid.UUID  `json:"notification_id"`
	Priority       Priority   `json:"priority"`
	ProcessAt      time.Time  `json:"process_at"`
	Claimed        bool       `json:"claimed"`
	ClaimedBy      *uuid.UUID `json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	LeaseUntil     *time.Time `json:"lease_until,omitempty"`
	EnqueuedAt     time.Time  `json:"enqueued_at"`
}

// NewEntry creates an unclaimed entry for the notification, due at processAt.
func NewEntry(notificationID uuid.UUID, priority Priority, processAt time.Time) *Entry {
	if !priority.Valid() {
		priority = PriorityDefault
	}
	return &Entry{
		ID:             uuid.New(),
		NotificationID: notificationID,
		Priority:       priority,
		ProcessAt:      processAt,
		EnqueuedAt:     time.Now(),
	}
}
