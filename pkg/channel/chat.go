package channel

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// ChatAdapter sends messages through a WhatsApp Business style chat gateway.
type ChatAdapter struct {
	config ChatConfig
	client *resty.Client
}

type chatRequest struct {
	To   string       `json:"to"`
	Type string       `json:"type"`
	Text chatTextBody `json:"text"`
}

type chatTextBody struct {
	Body string `json:"body"`
}

type chatResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// NewChatAdapter creates a chat adapter for the configured gateway.
func NewChatAdapter(cfg ChatConfig) (*ChatAdapter, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: AccessToken is required", ErrInvalidConfig)
	}

	return &ChatAdapter{
		config: cfg,
		client: resty.New().SetBaseURL(cfg.GatewayURL).SetAuthToken(cfg.AccessToken),
	}, nil
}

// Channel implements Adapter.
func (a *ChatAdapter) Channel() notification.Channel {
	return notification.ChannelChat
}

// Send implements Adapter. The subject is ignored: chat messages carry only
// a body.
func (a *ChatAdapter) Send(ctx context.Context, address, _, body string) (*Result, error) {
	var out chatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			To:   address,
			Type: "text",
			Text: chatTextBody{Body: body},
		}).
		SetResult(&out).
		Post("/v1/messages")
	if err != nil {
		return nil, Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}

	if err := classifyStatus(resp.StatusCode(), resp.String()); err != nil {
		return nil, err
	}
	if len(out.Messages) == 0 {
		return nil, Permanent(fmt.Errorf("%w: gateway accepted request but returned no message id", ErrSendFailed))
	}

	return &Result{
		ProviderMessageID: out.Messages[0].ID,
		Provider:          "whatsapp",
	}, nil
}
