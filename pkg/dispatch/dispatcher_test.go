package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seyniprops/backoffice/pkg/channel"
	"github.com/seyniprops/backoffice/pkg/delivery"
	"github.com/seyniprops/backoffice/pkg/dispatch"
	"github.com/seyniprops/backoffice/pkg/notification"
	"github.com/seyniprops/backoffice/pkg/preferences"
	"github.com/seyniprops/backoffice/pkg/queue"
	"github.com/seyniprops/backoffice/pkg/templates"
)

// scriptedAdapter returns canned outcomes in order, repeating the last one.
type scriptedAdapter struct {
	ch       notification.Channel
	outcomes []scriptedOutcome
	calls    int
}

type scriptedOutcome struct {
	result *channel.Result
	err    error
}

func (a *scriptedAdapter) Channel() notification.Channel { return a.ch }

func (a *scriptedAdapter) Send(context.Context, string, string, string) (*channel.Result, error) {
	i := a.calls
	if i >= len(a.outcomes) {
		i = len(a.outcomes) - 1
	}
	a.calls++
	out := a.outcomes[i]
	return out.result, out.err
}

type engine struct {
	notifications *notification.MemoryStorage
	queue         *queue.MemoryStorage
	deliveries    *delivery.MemoryStorage
	prefs         *preferences.MemoryStorage
	dispatcher    *dispatch.Dispatcher
}

func newEngine(t *testing.T, adapters ...channel.Adapter) *engine {
	t.Helper()

	e := &engine{
		notifications: notification.NewMemoryStorage(),
		queue:         queue.NewMemoryStorage(),
		deliveries:    delivery.NewMemoryStorage(),
		prefs:         preferences.NewMemoryStorage(),
	}
	t.Cleanup(func() { _ = e.queue.Close() })

	gate, err := preferences.NewGate(e.prefs)
	require.NoError(t, err)

	catalog := templates.NewMemoryCatalog()
	require.NoError(t, catalog.Put(templates.Template{
		Code:     "RENT_DUE",
		Channel:  notification.ChannelSMS,
		Language: "fr",
		Body:     "Bonjour {{name}}, votre loyer de {{amount}} est dû.",
		Active:   true,
	}))
	renderer, err := templates.NewRenderer(catalog)
	require.NoError(t, err)

	e.dispatcher, err = dispatch.NewDispatcher(gate, renderer, e.notifications, e.queue, e.deliveries, adapters)
	require.NoError(t, err)
	return e
}

// allowAlways stores preferences with the weekend and window restrictions
// lifted so immediate requests pass the gate regardless of wall-clock time.
func (e *engine) allowAlways(t *testing.T, recipientID string) {
	t.Helper()

	prefs := preferences.Default(recipientID)
	prefs.Weekend = true
	prefs.ActiveFrom = preferences.TimeOfDay{}
	prefs.ActiveUntil = preferences.TimeOfDay{Hour: 23, Minute: 59}
	require.NoError(t, e.prefs.Save(context.Background(), prefs))
}

func smsRequest() dispatch.Request {
	return dispatch.Request{
		RecipientID:  "tenant-1",
		Type:         notification.TypePaymentReminder,
		Channel:      notification.ChannelSMS,
		PhoneNumber:  "+221771234567",
		TemplateCode: "RENT_DUE",
		Variables:    map[string]string{"name": "Awa", "amount": "150000"},
		Priority:     queue.PriorityHigh,
	}
}

func TestRequestNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("accepted request is persisted and queued", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		e.allowAlways(t, "tenant-1")

		receipt, err := e.dispatcher.RequestNotification(ctx, smsRequest())
		require.NoError(t, err)
		assert.False(t, receipt.Suppressed)

		n, err := e.notifications.Get(ctx, receipt.NotificationID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusPending, n.Status)
		assert.Equal(t, "Bonjour Awa, votre loyer de 150000 est dû.", n.Body)
		assert.Equal(t, 1, e.queue.Len())

		logs, err := e.notifications.ListLogs(ctx, n.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, notification.ActionCreated, logs[0].Action)
		assert.Equal(t, notification.ActionQueued, logs[1].Action)
	})

	t.Run("gate suppression creates nothing", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		prefs := preferences.Default("tenant-1")
		prefs.ReceiveSMS = false
		require.NoError(t, e.prefs.Save(ctx, prefs))

		receipt, err := e.dispatcher.RequestNotification(ctx, smsRequest())
		require.NoError(t, err)
		assert.True(t, receipt.Suppressed)
		assert.Equal(t, 0, e.queue.Len())
	})

	t.Run("weekend schedule suppressed by default preferences", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		req := smsRequest()
		req.ScheduledAt = time.Date(2027, 6, 5, 10, 0, 0, 0, time.UTC) // a Saturday

		receipt, err := e.dispatcher.RequestNotification(ctx, req)
		require.NoError(t, err)
		assert.True(t, receipt.Suppressed)
	})

	t.Run("invalid address rejected", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		req := smsRequest()
		req.PhoneNumber = "not-a-number"

		_, err := e.dispatcher.RequestNotification(ctx, req)
		assert.ErrorIs(t, err, notification.ErrInvalidAddress)
	})

	t.Run("missing template aborts intake", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		e.allowAlways(t, "tenant-1")
		req := smsRequest()
		req.TemplateCode = "NO_SUCH_TEMPLATE"

		_, err := e.dispatcher.RequestNotification(ctx, req)
		assert.ErrorIs(t, err, templates.ErrTemplateNotFound)
		assert.Equal(t, 0, e.queue.Len())
	})

	t.Run("future schedule marks the notification scheduled", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		e.allowAlways(t, "tenant-1")
		req := smsRequest()
		req.ScheduledAt = time.Now().Add(time.Hour)

		receipt, err := e.dispatcher.RequestNotification(ctx, req)
		require.NoError(t, err)

		n, err := e.notifications.Get(ctx, receipt.NotificationID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusScheduled, n.Status)
		require.NotNil(t, n.ScheduledAt)
	})

	t.Run("literal content used without template", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		e.allowAlways(t, "tenant-1")
		req := smsRequest()
		req.TemplateCode = ""
		req.Variables = nil
		req.Body = "Message direct"

		receipt, err := e.dispatcher.RequestNotification(ctx, req)
		require.NoError(t, err)

		n, err := e.notifications.Get(ctx, receipt.NotificationID)
		require.NoError(t, err)
		assert.Equal(t, "Message direct", n.Body)
	})
}

func TestProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	accept := func(t *testing.T, e *engine) *notification.Notification {
		t.Helper()
		e.allowAlways(t, "tenant-1")
		receipt, err := e.dispatcher.RequestNotification(ctx, smsRequest())
		require.NoError(t, err)
		n, err := e.notifications.Get(ctx, receipt.NotificationID)
		require.NoError(t, err)
		return n
	}

	t.Run("successful send opens a delivery record", func(t *testing.T) {
		t.Parallel()

		adapter := &scriptedAdapter{ch: notification.ChannelSMS, outcomes: []scriptedOutcome{
			{result: &channel.Result{ProviderMessageID: "sms-1", Provider: "orange", Cost: 12.5}},
		}}
		e := newEngine(t, adapter)
		n := accept(t, e)

		disposition, err := e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue)

		got, err := e.notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
		assert.Equal(t, "sms-1", got.ProviderResponseID)
		require.NotNil(t, got.SentAt)

		record, err := e.deliveries.GetByProviderMessageID(ctx, "sms-1")
		require.NoError(t, err)
		assert.Equal(t, delivery.KindSMS, record.Kind)
		assert.Equal(t, "orange", record.Provider)
		assert.Equal(t, 12.5, record.Cost)
	})

	t.Run("transient failures retry until attempts exhausted", func(t *testing.T) {
		t.Parallel()

		adapter := &scriptedAdapter{ch: notification.ChannelSMS, outcomes: []scriptedOutcome{
			{err: channel.Transient(assert.AnError)},
		}}
		e := newEngine(t, adapter)
		n := accept(t, e)

		// Attempts 1 and 2 fail and requeue with growing backoff.
		for attempt := 1; attempt < notification.DefaultMaxAttempts; attempt++ {
			disposition, err := e.dispatcher.Process(ctx, n.ID)
			require.NoError(t, err)
			assert.True(t, disposition.Requeue, "attempt %d should requeue", attempt)
			assert.WithinDuration(t,
				time.Now().Add(time.Duration(attempt)*30*time.Second),
				disposition.ProcessAt, 5*time.Second)

			got, err := e.notifications.Get(ctx, n.ID)
			require.NoError(t, err)
			assert.Equal(t, notification.StatusPending, got.Status, "retryable failure returns to pending")
			assert.Equal(t, attempt, got.Attempts)
		}

		// Final attempt exhausts the budget.
		disposition, err := e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue)

		got, err := e.notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.Equal(t, notification.DefaultMaxAttempts, got.Attempts)
		assert.False(t, got.CanRetry())

		// Terminal: further processing is a no-op.
		disposition, err = e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue)
	})

	t.Run("permanent failure exhausts the budget at once", func(t *testing.T) {
		t.Parallel()

		adapter := &scriptedAdapter{ch: notification.ChannelSMS, outcomes: []scriptedOutcome{
			{err: channel.Permanent(assert.AnError)},
		}}
		e := newEngine(t, adapter)
		n := accept(t, e)

		disposition, err := e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue, "permanent failures are not retried")

		got, err := e.notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.False(t, got.CanRetry())
		assert.Equal(t, 1, adapter.calls)
	})

	t.Run("missing adapter fails permanently", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t) // no adapters registered
		n := accept(t, e)

		disposition, err := e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue)

		got, err := e.notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.Contains(t, got.LastError, "no adapter registered")
	})

	t.Run("reclaimed failed notification is re-armed before sending", func(t *testing.T) {
		t.Parallel()

		adapter := &scriptedAdapter{ch: notification.ChannelSMS, outcomes: []scriptedOutcome{
			{result: &channel.Result{ProviderMessageID: "sms-3", Provider: "orange"}},
		}}
		e := newEngine(t, adapter)

		// A worker crash between recording a failure and persisting the
		// retry leaves a failed-but-retryable notification behind a live
		// queue entry. The next claim cycle must move it back through
		// pending instead of sending from failed.
		n := notification.New("tenant-1", notification.TypePaymentReminder, notification.ChannelSMS)
		n.PhoneNumber = "+221771234567"
		n.Body = "Rappel de loyer"
		_, err := n.MarkFailed("gateway timeout")
		require.NoError(t, err)
		require.NoError(t, e.notifications.Create(ctx, n))

		disposition, err := e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue)
		assert.Equal(t, 1, adapter.calls)

		got, err := e.notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
		assert.Equal(t, 1, got.Attempts, "attempts are never reset by the retry")

		logs, err := e.notifications.ListLogs(ctx, n.ID)
		require.NoError(t, err)
		var actions []notification.LogAction
		for _, entry := range logs {
			actions = append(actions, entry.Action)
		}
		assert.Equal(t, []notification.LogAction{
			notification.ActionRetry,
			notification.ActionProcessing,
			notification.ActionSent,
		}, actions)

		// A stale duplicate claim after the send finds nothing to do.
		disposition, err = e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, disposition.Requeue)
		assert.Equal(t, 1, adapter.calls, "no duplicate send on repeated claims")
	})

	t.Run("audit trail covers the full lifecycle", func(t *testing.T) {
		t.Parallel()

		adapter := &scriptedAdapter{ch: notification.ChannelSMS, outcomes: []scriptedOutcome{
			{err: channel.Transient(assert.AnError)},
			{result: &channel.Result{ProviderMessageID: "sms-2", Provider: "orange"}},
		}}
		e := newEngine(t, adapter)
		n := accept(t, e)

		_, err := e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)
		_, err = e.dispatcher.Process(ctx, n.ID)
		require.NoError(t, err)

		logs, err := e.notifications.ListLogs(ctx, n.ID)
		require.NoError(t, err)

		var actions []notification.LogAction
		for _, entry := range logs {
			actions = append(actions, entry.Action)
		}
		assert.Equal(t, []notification.LogAction{
			notification.ActionCreated,
			notification.ActionQueued,
			notification.ActionProcessing,
			notification.ActionFailed,
			notification.ActionRetry,
			notification.ActionProcessing,
			notification.ActionSent,
		}, actions)
	})
}
