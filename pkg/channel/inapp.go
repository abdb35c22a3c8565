package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// inAppChannelPrefix is the Redis pub/sub channel prefix; the recipient ID
// is appended so connected clients subscribe only to their own stream.
const inAppChannelPrefix = "notifications:recipient:"

// InAppAdapter publishes in-app notifications over Redis pub/sub. The
// address for the in-app channel is the recipient ID.
type InAppAdapter struct {
	client redis.UniversalClient
}

// inAppMessage is the wire format pushed to connected clients.
type inAppMessage struct {
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// NewInAppAdapter creates an in-app adapter over the given Redis client.
func NewInAppAdapter(client redis.UniversalClient) (*InAppAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	return &InAppAdapter{client: client}, nil
}

// Channel implements Adapter.
func (a *InAppAdapter) Channel() notification.Channel {
	return notification.ChannelInApp
}

// Send implements Adapter. Publish failures are always transient: Redis
// being down is never the message's fault.
func (a *InAppAdapter) Send(ctx context.Context, address, subject, body string) (*Result, error) {
	if address == "" {
		return nil, Permanent(errors.New("in-app notification requires a recipient id"))
	}

	payload, err := json.Marshal(inAppMessage{
		Subject:     subject,
		Body:        body,
		PublishedAt: time.Now(),
	})
	if err != nil {
		return nil, Permanent(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}

	if err := a.client.Publish(ctx, inAppChannelPrefix+address, payload).Err(); err != nil {
		return nil, Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}

	// In-app delivery has no provider-side tracking; read receipts come from
	// the application itself.
	return &Result{}, nil
}
