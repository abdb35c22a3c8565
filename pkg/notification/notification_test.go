package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seyniprops/backoffice/pkg/notification"
)

func TestNotification_MarkSent(t *testing.T) {
	t.Parallel()

	t.Run("from pending", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)

		entry, err := n.MarkSent("SM123")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, notification.ActionSent, entry.Action)
		assert.Equal(t, notification.StatusSent, n.Status)
		assert.Equal(t, "SM123", n.ProviderResponseID)
		require.NotNil(t, n.SentAt)
	})

	t.Run("from scheduled", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypePaymentReminder, notification.ChannelEmail)
		_, err := n.Schedule(time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = n.MarkSent("pm-1")
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, n.Status)
	})

	t.Run("sent time is set at most once", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)
		_, err := n.MarkSent("SM1")
		require.NoError(t, err)
		firstSentAt := *n.SentAt

		// A failed-then-retried notification keeps its original sent time.
		_, err = n.MarkFailed("provider reported failure")
		require.NoError(t, err)
		_, ok := n.Retry()
		require.True(t, ok)
		_, err = n.MarkSent("SM2")
		require.NoError(t, err)

		assert.Equal(t, firstSentAt, *n.SentAt)
	})

	t.Run("rejected from sent", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)
		_, err := n.MarkSent("SM1")
		require.NoError(t, err)

		_, err = n.MarkSent("SM2")
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)
	})
}

func TestNotification_MarkFailed(t *testing.T) {
	t.Parallel()

	t.Run("increments attempts", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)

		entry, err := n.MarkFailed("gateway timeout")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, notification.StatusFailed, n.Status)
		assert.Equal(t, 1, n.Attempts)
		assert.Equal(t, "gateway timeout", n.LastError)
	})

	t.Run("attempts never exceed max attempts", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)

		for i := 0; i < n.MaxAttempts; i++ {
			_, err := n.MarkFailed("boom")
			require.NoError(t, err)
			_, _ = n.Retry()
		}

		assert.Equal(t, n.MaxAttempts, n.Attempts)
		assert.LessOrEqual(t, n.Attempts, n.MaxAttempts)
	})

	t.Run("rejected once terminal", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)
		n.MaxAttempts = 1
		_, err := n.MarkFailed("boom")
		require.NoError(t, err)
		require.True(t, n.Terminal())

		_, err = n.MarkFailed("again")
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)
	})
}

func TestNotification_MarkRead(t *testing.T) {
	t.Parallel()

	t.Run("only from sent", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelChat)
		_, err := n.MarkRead()
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)

		_, err = n.MarkSent("wamid.1")
		require.NoError(t, err)
		entry, err := n.MarkRead()
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, notification.StatusRead, n.Status)
		require.NotNil(t, n.ReadAt)
	})

	t.Run("idempotent when already read", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelChat)
		_, err := n.MarkSent("wamid.1")
		require.NoError(t, err)
		_, err = n.MarkRead()
		require.NoError(t, err)
		firstReadAt := *n.ReadAt

		entry, err := n.MarkRead()
		require.NoError(t, err)
		assert.Nil(t, entry, "repeated MarkRead must not produce a log entry")
		assert.Equal(t, notification.StatusRead, n.Status)
		assert.Equal(t, firstReadAt, *n.ReadAt)
	})

	t.Run("read implies a prior sent time", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelChat)
		_, err := n.MarkSent("wamid.1")
		require.NoError(t, err)
		_, err = n.MarkRead()
		require.NoError(t, err)

		require.NotNil(t, n.SentAt)
		require.NotNil(t, n.ReadAt)
		assert.False(t, n.ReadAt.Before(*n.SentAt))
	})
}

func TestNotification_Retry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds iff failed with attempts remaining", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)
		assert.False(t, n.CanRetry(), "pending notification is not retryable")

		_, err := n.MarkFailed("boom")
		require.NoError(t, err)
		require.True(t, n.CanRetry())

		entry, ok := n.Retry()
		require.True(t, ok)
		require.NotNil(t, entry)
		assert.Equal(t, notification.StatusPending, n.Status)
		assert.Empty(t, n.LastError)
		assert.Equal(t, 1, n.Attempts, "retry never resets attempts")
	})

	t.Run("no-op when attempts exhausted", func(t *testing.T) {
		t.Parallel()

		n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)
		n.MaxAttempts = 2
		for i := 0; i < 2; i++ {
			_, err := n.MarkFailed("boom")
			require.NoError(t, err)
			if n.CanRetry() {
				_, _ = n.Retry()
			}
		}

		assert.False(t, n.CanRetry())
		entry, ok := n.Retry()
		assert.False(t, ok)
		assert.Nil(t, entry)
		assert.Equal(t, notification.StatusFailed, n.Status)
		assert.Equal(t, 2, n.Attempts)
	})
}

func TestNotification_ExhaustAttempts(t *testing.T) {
	t.Parallel()

	n := notification.New("tenant-1", notification.TypeWelcome, notification.ChannelSMS)
	_, err := n.MarkFailed("recipient opted out at provider")
	require.NoError(t, err)

	n.ExhaustAttempts()
	assert.Equal(t, n.MaxAttempts, n.Attempts)
	assert.True(t, n.Terminal())
	assert.False(t, n.CanRetry())
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		channel notification.Channel
		phone   string
		email   string
		wantErr error
	}{
		{"valid sms phone", notification.ChannelSMS, "+221771234567", "", nil},
		{"valid chat phone", notification.ChannelChat, "221771234567", "", nil},
		{"phone too short", notification.ChannelSMS, "1234", "", notification.ErrInvalidAddress},
		{"phone with letters", notification.ChannelSMS, "77AB1234567", "", notification.ErrInvalidAddress},
		{"missing phone", notification.ChannelSMS, "", "", notification.ErrMissingAddress},
		{"valid email", notification.ChannelEmail, "", "awa@example.sn", nil},
		{"malformed email", notification.ChannelEmail, "", "not-an-email", notification.ErrInvalidAddress},
		{"missing email", notification.ChannelEmail, "", "", notification.ErrMissingAddress},
		{"in-app needs no address", notification.ChannelInApp, "", "", nil},
		{"unknown channel", notification.Channel("fax"), "", "", notification.ErrUnsupportedChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := notification.ValidateAddress(tt.channel, tt.phone, tt.email)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
