package stats

import (
	"time"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// ChannelCounters holds the per-channel delivery funnel for one day.
type ChannelCounters struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
}

// DailyStatistics is one day's aggregated delivery report.
type DailyStatistics struct {
	// Date is the UTC calendar day, truncated to midnight.
	Date time.Time `json:"date"`

	SMS   ChannelCounters `json:"sms"`
	Chat  ChannelCounters `json:"chat"`
	Email ChannelCounters `json:"email"`
	InApp ChannelCounters `json:"in_app"`

	// ByType counts sent notifications per notification type.
	ByType map[notification.Type]int `json:"by_type"`

	TotalSent     int `json:"total_sent"`
	TotalFailures int `json:"total_failures"`

	// SMSCost sums the per-message gateway prices reported for the day.
	SMSCost float64 `json:"sms_cost"`

	// GeneratedAt records when the row was computed. Audit metadata only:
	// recomputing the same day yields a row identical in every other field,
	// and consumers comparing runs must ignore it.
	GeneratedAt time.Time `json:"generated_at"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
