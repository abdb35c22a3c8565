package delivery

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the channel variant of a delivery record.
type Kind string

const (
	KindSMS  Kind = "sms"
	KindChat Kind = "chat"
)

// Status is the provider-side delivery status of a tracked message. It only
// moves forward: sent, delivered, read. Failed and expired are terminal.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// rank orders the forward-only statuses. Terminal failure statuses are
// handled separately in Advance.
func (s Status) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether no further callbacks can change the record.
func (s Status) Terminal() bool {
	return s == StatusRead || s == StatusFailed || s == StatusExpired
}

// Record tracks one message handed to a provider with delivery callbacks.
type Record struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	Kind           Kind      `json:"kind"`

	// ProviderMessageID is the provider's identifier, the key callbacks are
	// matched on.
	ProviderMessageID string `json:"provider_message_id"`

	Status      Status     `json:"status"`
	SentAt      time.Time  `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	FailureNote string     `json:"failure_note,omitempty"`

	// Provider and Cost are populated for SMS records only; chat messages
	// go through a single gateway with no per-message pricing.
	Provider string  `json:"provider,omitempty"`
	Cost     float64 `json:"cost,omitempty"`

	// CallbackData keeps the raw payload of the last processed callback for
	// troubleshooting.
	CallbackData map[string]any `json:"callback_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSMSRecord creates a record for an SMS handed to the given provider.
func NewSMSRecord(notificationID uuid.UUID, providerMessageID, provider string, cost float64) *Record {
	r := newRecord(notificationID, KindSMS, providerMessageID)
	r.Provider = provider
	r.Cost = cost
	return r
}

// NewChatRecord creates a record for a chat message.
func NewChatRecord(notificationID uuid.UUID, providerMessageID string) *Record {
	return newRecord(notificationID, KindChat, providerMessageID)
}

func newRecord(notificationID uuid.UUID, kind Kind, providerMessageID string) *Record {
	now := time.Now()
	return &Record{
		ID:                uuid.New(),
		NotificationID:    notificationID,
		Kind:              kind,
		ProviderMessageID: providerMessageID,
		Status:            StatusSent,
		SentAt:            now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Advance applies a callback status to the record. It returns true when the
// record actually changed. Forward-only: a status whose rank does not exceed
// the current one is ignored, as are callbacks arriving after a terminal
// status. DeliveredAt and ReadAt are set on first reach and never
// overwritten.
func (r *Record) Advance(status Status, at time.Time, note string) bool {
	if r.Status.Terminal() {
		return false
	}

	switch status {
	case StatusFailed, StatusExpired:
		r.Status = status
		r.FailureNote = note
		r.UpdatedAt = time.Now()
		return true
	case StatusDelivered, StatusRead:
		if status.rank() <= r.Status.rank() {
			return false
		}
		if r.DeliveredAt == nil {
			// A read callback implies delivery even if the delivered
			// callback was lost.
			deliveredAt := at
			r.DeliveredAt = &deliveredAt
		}
		if status == StatusRead && r.ReadAt == nil {
			readAt := at
			r.ReadAt = &readAt
		}
		r.Status = status
		r.UpdatedAt = time.Now()
		return true
	default:
		return false
	}
}
