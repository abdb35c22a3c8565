package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Callback is a normalized provider delivery callback.
type Callback struct {
	ProviderMessageID string
	Status            Status
	Timestamp         time.Time
	Raw               map[string]any
}

// Reconciler applies provider callbacks to delivery records and propagates
// read receipts and failures to the parent notification.
type Reconciler struct {
	deliveries    Storage
	notifications notification.Storage
	logger        *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger for the Reconciler.
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(deliveries Storage, notifications notification.Storage, opts ...ReconcilerOption) (*Reconciler, error) {
	if deliveries == nil || notifications == nil {
		return nil, ErrStorageNil
	}

	r := &Reconciler{
		deliveries:    deliveries,
		notifications: notifications,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Apply processes one callback. It is idempotent: duplicated and
// out-of-order callbacks leave both the record and the parent notification
// unchanged. Callbacks matching no record are logged and discarded.
func (r *Reconciler) Apply(ctx context.Context, cb Callback) error {
	if cb.ProviderMessageID == "" {
		r.logger.WarnContext(ctx, "delivery callback without provider message id discarded")
		return nil
	}

	record, err := r.deliveries.GetByProviderMessageID(ctx, cb.ProviderMessageID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Routine: providers replay callbacks past our retention window
			// and send callbacks for messages sent by other systems.
			r.logger.InfoContext(ctx, "delivery callback matched no record, discarding",
				slog.String("provider_message_id", cb.ProviderMessageID),
				slog.String("status", string(cb.Status)))
			return nil
		}
		return fmt.Errorf("lookup delivery record: %w", err)
	}

	at := cb.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	note := ""
	if cb.Status == StatusFailed || cb.Status == StatusExpired {
		note = failureNote(cb.Raw)
	}

	if !record.Advance(cb.Status, at, note) {
		r.logger.DebugContext(ctx, "delivery callback ignored, no forward progress",
			slog.String("provider_message_id", cb.ProviderMessageID),
			slog.String("record_status", string(record.Status)),
			slog.String("callback_status", string(cb.Status)))
		return nil
	}

	// Propagate to the parent notification before persisting the record
	// advance. When propagation fails the provider retries the callback,
	// and the retry must find the record still lagging so it advances and
	// propagates again; persisting first would make the retry a no-op and
	// lose the receipt.
	switch cb.Status {
	case StatusRead:
		if err := r.propagateRead(ctx, record, at); err != nil {
			return err
		}
	case StatusFailed, StatusExpired:
		if err := r.propagateFailure(ctx, record, note); err != nil {
			return err
		}
	}

	record.CallbackData = cb.Raw
	if err := r.deliveries.Update(ctx, record); err != nil {
		return fmt.Errorf("update delivery record: %w", err)
	}
	return nil
}

// propagateRead marks the parent notification read. MarkRead is a no-op for
// already-read notifications, which keeps double callbacks harmless.
func (r *Reconciler) propagateRead(ctx context.Context, record *Record, at time.Time) error {
	n, err := r.notifications.Get(ctx, record.NotificationID)
	if err != nil {
		return fmt.Errorf("load notification for read receipt: %w", err)
	}

	entry, err := n.MarkRead()
	if err != nil {
		// The notification never reached the sent state (for example a
		// failure raced the read callback). Keep the record's view, log the
		// anomaly and move on.
		r.logger.WarnContext(ctx, "read receipt could not be applied to notification",
			slog.String("notification_id", n.ID.String()),
			slog.String("status", string(n.Status)),
			slog.String("error", err.Error()))
		return nil
	}
	if entry == nil {
		return nil
	}

	n.ReadAt = &at
	if err := r.notifications.Update(ctx, n); err != nil {
		return fmt.Errorf("update notification after read receipt: %w", err)
	}
	if err := r.notifications.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("append read log: %w", err)
	}
	return nil
}

// propagateFailure marks the parent notification failed when the provider
// reports the message undeliverable after we recorded a successful hand-off.
func (r *Reconciler) propagateFailure(ctx context.Context, record *Record, note string) error {
	n, err := r.notifications.Get(ctx, record.NotificationID)
	if err != nil {
		return fmt.Errorf("load notification for delivery failure: %w", err)
	}

	if n.Status != notification.StatusSent {
		// Already failed, read, or retried into another attempt. Nothing to
		// propagate.
		return nil
	}

	reason := "provider reported delivery failure"
	if note != "" {
		reason = reason + ": " + note
	}
	entry, err := n.MarkFailed(reason)
	if err != nil {
		return nil
	}

	if err := r.notifications.Update(ctx, n); err != nil {
		return fmt.Errorf("update notification after delivery failure: %w", err)
	}
	if err := r.notifications.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("append failure log: %w", err)
	}
	return nil
}

func failureNote(raw map[string]any) string {
	for _, key := range []string{"error", "reason", "description"} {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
