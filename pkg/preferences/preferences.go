package preferences

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, used for the daily active
// window bounds.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "15:04" formatted strings.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Preferences are the per-recipient notification settings. They are owned by
// the recipient and read-only to the delivery engine.
type Preferences struct {
	RecipientID string `json:"recipient_id"`

	// Per-channel opt-in flags.
	ReceiveSMS   bool `json:"receive_sms"`
	ReceiveChat  bool `json:"receive_chat"`
	ReceiveEmail bool `json:"receive_email"`
	ReceiveInApp bool `json:"receive_in_app"`

	// Per-type opt-in flags. Types without a flag are always allowed.
	PaymentReminders bool `json:"payment_reminders"`
	Interventions    bool `json:"interventions"`
	Contracts        bool `json:"contracts"`
	Tasks            bool `json:"tasks"`

	// PaymentReminderLeadDays is how many days before a due date payment
	// reminders should be scheduled. Read by callers, not by the engine.
	PaymentReminderLeadDays int `json:"payment_reminder_lead_days"`

	// Language is the recipient's preferred template language (fr, wo, en).
	Language string `json:"language"`

	// Daily active window, inclusive on both ends.
	ActiveFrom  TimeOfDay `json:"active_from"`
	ActiveUntil TimeOfDay `json:"active_until"`

	// Weekend controls whether Saturday and Sunday deliveries are allowed.
	Weekend bool `json:"weekend"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Default returns the settings applied to recipients who never configured
// anything: every channel and type opted in, 08:00-20:00 window, no weekend
// deliveries, French templates.
func Default(recipientID string) Preferences {
	return Preferences{
		RecipientID:             recipientID,
		ReceiveSMS:              true,
		ReceiveChat:             true,
		ReceiveEmail:            true,
		ReceiveInApp:            true,
		PaymentReminders:        true,
		Interventions:           true,
		Contracts:               true,
		Tasks:                   true,
		PaymentReminderLeadDays: 3,
		Language:                "fr",
		ActiveFrom:              TimeOfDay{Hour: 8},
		ActiveUntil:             TimeOfDay{Hour: 20},
		Weekend:                 false,
	}
}
