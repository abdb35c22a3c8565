package channel_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seyniprops/backoffice/pkg/channel"
	"github.com/seyniprops/backoffice/pkg/notification"
)

func TestDevAdapter_Send(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := channel.NewDevAdapter(notification.ChannelSMS, dir)
	assert.Equal(t, notification.ChannelSMS, a.Channel())

	result, err := a.Send(context.Background(), "+221771234567", "Rappel", "Votre loyer est dû")
	require.NoError(t, err)
	assert.Equal(t, "dev", result.Provider)
	assert.NotEmpty(t, result.ProviderMessageID)

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "sms", msg["channel"])
	assert.Equal(t, "+221771234567", msg["address"])
	assert.Equal(t, "Votre loyer est dû", msg["body"])
}
