package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seyniprops/backoffice/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestNotificationID(t *testing.T) {
	id := uuid.New()
	attr := logger.NotificationID(id)
	require.Equal(t, "notification_id", attr.Key)
	assert.Equal(t, id.String(), attr.Value.String())
}

func TestRecipientID(t *testing.T) {
	attr := logger.RecipientID("tenant-1")
	require.Equal(t, "recipient_id", attr.Key)
	assert.Equal(t, "tenant-1", attr.Value.String())
}

func TestChannelAndProvider(t *testing.T) {
	attr := logger.Channel("sms")
	require.Equal(t, "channel", attr.Key)
	assert.Equal(t, "sms", attr.Value.String())

	attr = logger.Provider("orange")
	require.Equal(t, "provider", attr.Key)
	assert.Equal(t, "orange", attr.Value.String())
}

func TestAttempt(t *testing.T) {
	attr := logger.Attempt(2)
	require.Equal(t, "attempt", attr.Key)
	assert.Equal(t, int64(2), attr.Value.Int64())
}
