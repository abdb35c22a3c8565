package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seyniprops/backoffice/pkg/channel"
	"github.com/seyniprops/backoffice/pkg/delivery"
	"github.com/seyniprops/backoffice/pkg/logger"
	"github.com/seyniprops/backoffice/pkg/notification"
	"github.com/seyniprops/backoffice/pkg/preferences"
	"github.com/seyniprops/backoffice/pkg/queue"
	"github.com/seyniprops/backoffice/pkg/templates"
)

var (
	// ErrDependencyNil is returned when the dispatcher is constructed
	// without one of its required collaborators.
	ErrDependencyNil = errors.New("dispatcher dependency cannot be nil")

	// ErrNoAdapter is recorded on notifications whose channel has no
	// registered adapter.
	ErrNoAdapter = errors.New("no adapter registered for channel")
)

// Request describes one notification to be delivered.
type Request struct {
	RecipientID string
	Type        notification.Type
	Channel     notification.Channel

	// Contact addresses; which one is required depends on the channel.
	PhoneNumber string
	Email       string

	// TemplateCode selects catalog content, rendered with Variables in the
	// recipient's language. When empty, Subject and Body are used verbatim.
	TemplateCode string
	Variables    map[string]string
	Subject      string
	Body         string

	Priority queue.Priority

	// ScheduledAt delays delivery; zero means deliver now. The preference
	// gate is evaluated against the delivery time.
	ScheduledAt time.Time

	SenderID string
	Related  *notification.RelatedObject
}

// Receipt reports the outcome of an intake request. A suppressed request
// creates nothing: NotificationID is uuid.Nil and Suppressed is true.
type Receipt struct {
	NotificationID uuid.UUID
	Suppressed     bool
}

// Dispatcher runs the notification pipeline end to end.
type Dispatcher struct {
	gate          *preferences.Gate
	renderer      *templates.Renderer
	notifications notification.Storage
	queue         queue.Storage
	deliveries    delivery.Storage
	adapters      map[notification.Channel]channel.Adapter
	sendTimeout   time.Duration
	logger        *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSendTimeout bounds a single adapter call. Default 30s.
func WithSendTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.sendTimeout = d
		}
	}
}

// WithLogger sets the logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(dp *Dispatcher) {
		if logger != nil {
			dp.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher. Adapters are registered per channel;
// requests for a channel without an adapter fail at delivery time, not at
// intake, so intake stays available during partial outages.
func NewDispatcher(
	gate *preferences.Gate,
	renderer *templates.Renderer,
	notifications notification.Storage,
	queueStorage queue.Storage,
	deliveries delivery.Storage,
	adapters []channel.Adapter,
	opts ...Option,
) (*Dispatcher, error) {
	if gate == nil || renderer == nil || notifications == nil || queueStorage == nil || deliveries == nil {
		return nil, ErrDependencyNil
	}

	byChannel := make(map[notification.Channel]channel.Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}

	dp := &Dispatcher{
		gate:          gate,
		renderer:      renderer,
		notifications: notifications,
		queue:         queueStorage,
		deliveries:    deliveries,
		adapters:      byChannel,
		sendTimeout:   30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(dp)
	}
	return dp, nil
}

// RequestNotification runs the intake pipeline: validate the address,
// consult the preference gate, render content, persist the notification and
// enqueue it for delivery. Gate suppression is a normal outcome, reported on
// the Receipt; nothing is created for a suppressed request.
func (dp *Dispatcher) RequestNotification(ctx context.Context, req Request) (Receipt, error) {
	if err := notification.ValidateAddress(req.Channel, req.PhoneNumber, req.Email); err != nil {
		return Receipt{}, err
	}
	if req.Channel == notification.ChannelInApp && req.RecipientID == "" {
		return Receipt{}, notification.ErrMissingAddress
	}

	deliverAt := req.ScheduledAt
	if deliverAt.IsZero() {
		deliverAt = time.Now()
	}

	allowed, err := dp.gate.CanReceive(ctx, req.RecipientID, req.Channel, req.Type, deliverAt)
	if err != nil {
		return Receipt{}, fmt.Errorf("evaluate preference gate: %w", err)
	}
	if !allowed {
		return Receipt{Suppressed: true}, nil
	}

	subject, body := req.Subject, req.Body
	if req.TemplateCode != "" {
		prefs, err := dp.gate.Load(ctx, req.RecipientID)
		if err != nil {
			return Receipt{}, fmt.Errorf("load preferences: %w", err)
		}
		subject, body, err = dp.renderer.Render(ctx, req.TemplateCode, req.Channel, prefs.Language, req.Variables)
		if err != nil {
			return Receipt{}, fmt.Errorf("render template %s: %w", req.TemplateCode, err)
		}
	}

	n := notification.New(req.RecipientID, req.Type, req.Channel)
	n.PhoneNumber = req.PhoneNumber
	n.Email = req.Email
	n.Subject = subject
	n.Body = body
	n.TemplateCode = req.TemplateCode
	n.Variables = req.Variables
	n.SenderID = req.SenderID
	n.Related = req.Related

	var scheduleEntry *notification.LogEntry
	if !req.ScheduledAt.IsZero() && req.ScheduledAt.After(time.Now()) {
		scheduleEntry, err = n.Schedule(req.ScheduledAt)
		if err != nil {
			return Receipt{}, err
		}
	}

	if err := dp.notifications.Create(ctx, n); err != nil {
		return Receipt{}, fmt.Errorf("persist notification: %w", err)
	}
	dp.appendLog(ctx, notification.NewLogEntry(n.ID, notification.ActionCreated, "notification created", map[string]any{
		"channel": string(n.Channel),
		"type":    string(n.Type),
	}))
	if scheduleEntry != nil {
		dp.appendLog(ctx, scheduleEntry)
	}

	entry := queue.NewEntry(n.ID, req.Priority, deliverAt)
	if err := dp.queue.Enqueue(ctx, entry); err != nil {
		return Receipt{}, fmt.Errorf("enqueue notification: %w", err)
	}
	dp.appendLog(ctx, notification.NewLogEntry(n.ID, notification.ActionQueued, "queued for delivery", map[string]any{
		"priority":   entry.Priority.String(),
		"process_at": entry.ProcessAt.Format(time.RFC3339),
	}))

	dp.logger.InfoContext(ctx, "notification accepted",
		logger.NotificationID(n.ID),
		logger.RecipientID(n.RecipientID),
		logger.Channel(string(n.Channel)),
		slog.String("type", string(n.Type)))

	return Receipt{NotificationID: n.ID}, nil
}

// Process implements queue.Processor: deliver the notification behind a
// claimed queue entry and decide whether the entry stays queued.
func (dp *Dispatcher) Process(ctx context.Context, notificationID uuid.UUID) (queue.Disposition, error) {
	n, err := dp.notifications.Get(ctx, notificationID)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			// The notification is gone; keeping the entry would loop
			// forever.
			dp.logger.WarnContext(ctx, "queue entry references missing notification, dropping",
				logger.NotificationID(notificationID))
			return queue.Done(), nil
		}
		return queue.Disposition{}, err
	}

	// Terminal or already-sent notifications have nothing left to deliver;
	// such entries appear after lease reclaims of half-finished work.
	if n.Terminal() || n.Status == notification.StatusSent || n.Status == notification.StatusRead {
		return queue.Done(), nil
	}

	// A failed notification with attempts left behind a live entry means the
	// previous worker recorded the failure but never persisted the retry
	// before its lease expired. Move it back to pending first; sending from
	// failed would be rejected by MarkSent and loop the entry forever.
	if n.Status == notification.StatusFailed {
		retryEntry, ok := n.Retry()
		if !ok {
			return queue.Done(), nil
		}
		if err := dp.notifications.Update(ctx, n); err != nil {
			return queue.Disposition{}, fmt.Errorf("persist retried notification: %w", err)
		}
		dp.appendLog(ctx, retryEntry)
	}

	dp.appendLog(ctx, notification.NewLogEntry(n.ID, notification.ActionProcessing, "delivery attempt started", map[string]any{
		"attempt": n.Attempts + 1,
	}))

	adapter, ok := dp.adapters[n.Channel]
	if !ok {
		return dp.handleFailure(ctx, n, fmt.Errorf("%w: %s", ErrNoAdapter, n.Channel), true)
	}

	sendCtx, cancel := context.WithTimeout(ctx, dp.sendTimeout)
	defer cancel()

	result, err := adapter.Send(sendCtx, n.Address(), n.Subject, n.Body)
	if err != nil {
		return dp.handleFailure(ctx, n, err, channel.IsPermanent(err))
	}

	return dp.handleSuccess(ctx, n, result)
}

// handleSuccess records the provider hand-off and marks the notification
// sent. SMS and chat sends additionally open a delivery record so provider
// callbacks can be reconciled later.
func (dp *Dispatcher) handleSuccess(ctx context.Context, n *notification.Notification, result *channel.Result) (queue.Disposition, error) {
	if result.ProviderMessageID != "" {
		var record *delivery.Record
		switch n.Channel {
		case notification.ChannelSMS:
			record = delivery.NewSMSRecord(n.ID, result.ProviderMessageID, result.Provider, result.Cost)
		case notification.ChannelChat:
			record = delivery.NewChatRecord(n.ID, result.ProviderMessageID)
		}
		if record != nil {
			if err := dp.deliveries.Create(ctx, record); err != nil {
				// The message is already with the provider; failing the
				// notification now would double-send on retry. Log and
				// continue without tracking.
				dp.logger.ErrorContext(ctx, "failed to create delivery record",
					logger.NotificationID(n.ID),
					slog.String("provider_message_id", result.ProviderMessageID),
					logger.Error(err))
			}
		}
	}

	entry, err := n.MarkSent(result.ProviderMessageID)
	if err != nil {
		return queue.Disposition{}, err
	}
	if err := dp.notifications.Update(ctx, n); err != nil {
		return queue.Disposition{}, fmt.Errorf("persist sent notification: %w", err)
	}
	dp.appendLog(ctx, entry)

	dp.logger.InfoContext(ctx, "notification sent",
		logger.NotificationID(n.ID),
		logger.Channel(string(n.Channel)),
		logger.Provider(result.Provider),
		logger.Attempt(n.Attempts+1))

	return queue.Done(), nil
}

// handleFailure records the failed attempt and decides between retrying
// with backoff and giving up. Permanent errors spend the whole attempt
// budget: retrying a rejected address only burns money.
func (dp *Dispatcher) handleFailure(ctx context.Context, n *notification.Notification, sendErr error, permanent bool) (queue.Disposition, error) {
	entry, err := n.MarkFailed(sendErr.Error())
	if err != nil {
		return queue.Disposition{}, err
	}
	if permanent {
		n.ExhaustAttempts()
	}
	if err := dp.notifications.Update(ctx, n); err != nil {
		return queue.Disposition{}, fmt.Errorf("persist failed notification: %w", err)
	}
	dp.appendLog(ctx, entry)

	dp.logger.WarnContext(ctx, "delivery attempt failed",
		logger.NotificationID(n.ID),
		logger.Channel(string(n.Channel)),
		slog.Int("attempts", n.Attempts),
		slog.Int("max_attempts", n.MaxAttempts),
		slog.Bool("permanent", permanent),
		logger.Error(sendErr))

	if !n.CanRetry() {
		return queue.Done(), nil
	}

	retryEntry, ok := n.Retry()
	if !ok {
		return queue.Done(), nil
	}
	if err := dp.notifications.Update(ctx, n); err != nil {
		return queue.Disposition{}, fmt.Errorf("persist retried notification: %w", err)
	}
	dp.appendLog(ctx, retryEntry)

	return queue.RetryAt(time.Now().Add(retryBackoff(n.Attempts))), nil
}

// appendLog stores an audit entry, logging instead of failing the pipeline
// when the audit store is unavailable.
func (dp *Dispatcher) appendLog(ctx context.Context, entry *notification.LogEntry) {
	if entry == nil {
		return
	}
	if err := dp.notifications.AppendLog(ctx, entry); err != nil {
		dp.logger.ErrorContext(ctx, "failed to append notification log",
			logger.NotificationID(entry.NotificationID),
			slog.String("action", string(entry.Action)),
			logger.Error(err))
	}
}
