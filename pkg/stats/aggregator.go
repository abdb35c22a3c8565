package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seyniprops/backoffice/pkg/delivery"
	"github.com/seyniprops/backoffice/pkg/notification"
)

// ErrDependencyNil is returned when the aggregator is constructed without
// one of its stores.
var ErrDependencyNil = errors.New("aggregator dependency cannot be nil")

// Aggregator recomputes daily statistics from the notification and delivery
// stores.
type Aggregator struct {
	notifications notification.Storage
	deliveries    delivery.Storage
	stats         Storage
	logger        *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the logger for the Aggregator.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(notifications notification.Storage, deliveries delivery.Storage, stats Storage, opts ...AggregatorOption) (*Aggregator, error) {
	if notifications == nil || deliveries == nil || stats == nil {
		return nil, ErrDependencyNil
	}

	a := &Aggregator{
		notifications: notifications,
		deliveries:    deliveries,
		stats:         stats,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Recompute rebuilds the statistics for one UTC calendar day from scratch
// and upserts the result. It is deterministic: the same stored data always
// yields the same report, so re-running after late delivery callbacks is
// the supported way to refresh a day.
func (a *Aggregator) Recompute(ctx context.Context, date time.Time) (*DailyStatistics, error) {
	day := Day(date)

	sent, err := a.notifications.ListSentOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list sent notifications: %w", err)
	}
	failed, err := a.notifications.ListFailedOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list failed notifications: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(sent))
	for _, n := range sent {
		ids = append(ids, n.ID)
	}
	records, err := a.deliveries.ListByNotificationIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	recordByNotification := make(map[uuid.UUID]*delivery.Record, len(records))
	for _, r := range records {
		recordByNotification[r.NotificationID] = r
	}

	report := &DailyStatistics{
		Date:          day,
		ByType:        make(map[notification.Type]int),
		TotalSent:     len(sent),
		TotalFailures: len(failed),
		GeneratedAt:   time.Now(),
	}

	for i := range sent {
		n := &sent[i]
		counters := report.channel(n.Channel)
		if counters == nil {
			continue
		}
		counters.Sent++
		report.ByType[n.Type]++

		record := recordByNotification[n.ID]
		if record != nil {
			if record.DeliveredAt != nil {
				counters.Delivered++
			}
			if record.Kind == delivery.KindSMS {
				report.SMSCost += record.Cost
			}
		}

		// Read state lives on the notification for every channel; delivery
		// records mirror it only for tracked transports.
		if n.ReadAt != nil {
			counters.Read++
		}
	}

	if err := a.stats.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save daily statistics: %w", err)
	}

	a.logger.InfoContext(ctx, "daily statistics recomputed",
		slog.String("date", day.Format("2006-01-02")),
		slog.Int("total_sent", report.TotalSent),
		slog.Int("total_failures", report.TotalFailures))

	return report, nil
}

// channel returns the mutable counters for the given channel.
func (s *DailyStatistics) channel(ch notification.Channel) *ChannelCounters {
	switch ch {
	case notification.ChannelSMS:
		return &s.SMS
	case notification.ChannelChat:
		return &s.Chat
	case notification.ChannelEmail:
		return &s.Email
	case notification.ChannelInApp:
		return &s.InApp
	default:
		return nil
	}
}
