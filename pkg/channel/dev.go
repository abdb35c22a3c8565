package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// DevAdapter implements Adapter for local development. It writes each
// message as a JSON file to a directory instead of calling a provider, so
// developers can inspect exactly what would have been sent.
type DevAdapter struct {
	channel notification.Channel
	dir     string
}

// NewDevAdapter creates a development adapter standing in for the given
// channel. The directory is created on first send.
func NewDevAdapter(ch notification.Channel, dir string) *DevAdapter {
	return &DevAdapter{channel: ch, dir: dir}
}

// Channel implements Adapter.
func (a *DevAdapter) Channel() notification.Channel {
	return a.channel
}

type devMessage struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Address   string `json:"address"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// Send implements Adapter by writing the message to disk.
func (a *DevAdapter) Send(_ context.Context, address, subject, body string) (*Result, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return nil, Transient(fmt.Errorf("%w: failed to create directory: %v", ErrSendFailed, err))
	}

	now := time.Now()
	data, err := json.MarshalIndent(devMessage{
		Timestamp: now.Format(time.RFC3339),
		Channel:   string(a.channel),
		Address:   address,
		Subject:   subject,
		Body:      body,
	}, "", "  ")
	if err != nil {
		return nil, Permanent(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}

	filename := fmt.Sprintf("%s_%s_%s.json",
		now.Format("2006_01_02_150405"), a.channel, sanitizeFilename(address))
	if err := os.WriteFile(filepath.Join(a.dir, filename), data, 0644); err != nil {
		return nil, Transient(fmt.Errorf("%w: failed to write file: %v", ErrSendFailed, err))
	}

	return &Result{
		ProviderMessageID: "dev-" + uuid.NewString(),
		Provider:          "dev",
	}, nil
}

// sanitizeRegex matches characters that are not alphanumeric, dash,
// underscore, or dot.
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe filename.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
