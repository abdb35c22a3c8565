package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies what business event produced the notification.
type Type string

const (
	TypeWelcome               Type = "welcome"
	TypePaymentReminder       Type = "payment_reminder"
	TypeContractExpiry        Type = "contract_expiry"
	TypeInterventionAssigned  Type = "intervention_assigned"
	TypeInterventionCompleted Type = "intervention_completed"
	TypeTaskAssigned          Type = "task_assigned"
	TypeAccountCreated        Type = "account_created"
	TypePasswordReset         Type = "password_reset"
	TypeMaintenanceScheduled  Type = "maintenance_scheduled"
	TypeInvoiceGenerated      Type = "invoice_generated"
	TypePaymentReceived       Type = "payment_received"
	TypeSystemAlert           Type = "system_alert"
	TypeOther                 Type = "other"
)

// Channel is the transport a notification goes out on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

// Valid reports whether the channel is one of the supported transports.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelChat, ChannelEmail, ChannelInApp:
		return true
	}
	return false
}

// Status represents the notification lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// DefaultMaxAttempts is applied when a notification is created without an
// explicit attempt budget.
const DefaultMaxAttempts = 3

// RelatedObject is a weak reference to the business object that triggered the
// notification (a lease, an invoice, a maintenance ticket). It never implies
// ownership: deleting the business object leaves the notification untouched.
type RelatedObject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Notification is one outbound message attempt set.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        Type      `json:"type"`
	Channel     Channel   `json:"channel"`

	// Contact coordinates; PhoneNumber for sms/chat, Email for email.
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`

	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`

	Status      Status     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`

	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	LastError   string `json:"last_error,omitempty"`

	// ProviderResponseID is the id the external provider assigned on send.
	ProviderResponseID string `json:"provider_response_id,omitempty"`

	TemplateCode string            `json:"template_code,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`

	SenderID string         `json:"sender_id,omitempty"`
	Related  *RelatedObject `json:"related,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending notification with the attempt budget defaulted.
// A future scheduledAt moves it straight to the scheduled status.
func New(recipientID string, typ Type, ch Channel) *Notification {
	now := time.Now()
	return &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        typ,
		Channel:     ch,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Schedule sets the earliest delivery time and moves the notification to the
// scheduled status. Only valid while still pending.
func (n *Notification) Schedule(at time.Time) (*LogEntry, error) {
	if n.Status != StatusPending {
		return nil, ErrInvalidTransition
	}
	n.Status = StatusScheduled
	n.ScheduledAt = &at
	n.UpdatedAt = time.Now()
	return n.newLogEntry(ActionQueued, "notification scheduled", map[string]any{
		"scheduled_at": at,
	}), nil
}

// Terminal reports whether no further transition is valid: read, or failed
// with the attempt budget exhausted.
func (n *Notification) Terminal() bool {
	if n.Status == StatusRead {
		return true
	}
	return n.Status == StatusFailed && n.Attempts >= n.MaxAttempts
}

// MarkSent records a successful hand-off to the provider. Allowed from
// pending or scheduled only; SentAt is set exactly once and never cleared.
func (n *Notification) MarkSent(providerResponseID string) (*LogEntry, error) {
	if n.Status != StatusPending && n.Status != StatusScheduled {
		return nil, ErrInvalidTransition
	}
	n.Status = StatusSent
	if n.SentAt == nil {
		now := time.Now()
		n.SentAt = &now
	}
	if providerResponseID != "" {
		n.ProviderResponseID = providerResponseID
	}
	n.UpdatedAt = time.Now()
	return n.newLogEntry(ActionSent, "notification handed to provider", map[string]any{
		"provider_response_id": providerResponseID,
	}), nil
}

// MarkFailed records a delivery failure and consumes one attempt. Allowed
// from any non-terminal state.
func (n *Notification) MarkFailed(reason string) (*LogEntry, error) {
	if n.Terminal() {
		return nil, ErrInvalidTransition
	}
	n.Status = StatusFailed
	n.LastError = reason
	if n.Attempts < n.MaxAttempts {
		n.Attempts++
	}
	n.UpdatedAt = time.Now()
	return n.newLogEntry(ActionFailed, "delivery failed", map[string]any{
		"error":    reason,
		"attempts": n.Attempts,
	}), nil
}

// ExhaustAttempts burns the remaining attempt budget. Used when a provider
// reports a permanent failure that retries cannot fix.
func (n *Notification) ExhaustAttempts() {
	n.Attempts = n.MaxAttempts
	n.UpdatedAt = time.Now()
}

// MarkRead records the read confirmation. Allowed only from sent; calling it
// on an already read notification is a no-op and returns a nil entry.
func (n *Notification) MarkRead() (*LogEntry, error) {
	if n.Status == StatusRead {
		return nil, nil
	}
	if n.Status != StatusSent {
		return nil, ErrInvalidTransition
	}
	n.Status = StatusRead
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
	n.UpdatedAt = time.Now()
	return n.newLogEntry(ActionRead, "notification read by recipient", nil), nil
}

// CanRetry reports whether another delivery attempt is allowed.
func (n *Notification) CanRetry() bool {
	return n.Status == StatusFailed && n.Attempts < n.MaxAttempts
}

// Retry moves a retryable failed notification back to pending and clears the
// recorded error. Attempts are never reset. Calling it when not retryable is
// a no-op that returns false rather than an error.
func (n *Notification) Retry() (*LogEntry, bool) {
	if !n.CanRetry() {
		return nil, false
	}
	n.Status = StatusPending
	n.LastError = ""
	n.UpdatedAt = time.Now()
	return n.newLogEntry(ActionRetry, "notification requeued for retry", map[string]any{
		"attempts": n.Attempts,
	}), true
}

// Address returns the contact address relevant for the notification channel.
func (n *Notification) Address() string {
	if n.Channel == ChannelEmail {
		return n.Email
	}
	if n.Channel == ChannelInApp {
		return n.RecipientID
	}
	return n.PhoneNumber
}

func (n *Notification) newLogEntry(action LogAction, message string, metadata map[string]any) *LogEntry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["status"] = string(n.Status)
	return &LogEntry{
		ID:             uuid.New(),
		NotificationID: n.ID,
		Action:         action,
		Message:        message,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
}
