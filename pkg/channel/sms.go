package channel

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-resty/resty/v2"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Supported SMS gateway providers.
const (
	SMSProviderOrange  = "orange"
	SMSProviderTigo    = "tigo"
	SMSProviderBulkSMS = "bulk_sms"
	SMSProviderTwilio  = "twilio"
)

var smsProviders = []string{SMSProviderOrange, SMSProviderTigo, SMSProviderBulkSMS, SMSProviderTwilio}

// SMSAdapter sends text messages through a REST SMS gateway.
type SMSAdapter struct {
	config SMSConfig
	client *resty.Client
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

type smsResponse struct {
	MessageID string  `json:"message_id"`
	Cost      float64 `json:"cost"`
	Error     string  `json:"error,omitempty"`
}

// NewSMSAdapter creates an SMS adapter for the configured gateway.
func NewSMSAdapter(cfg SMSConfig) (*SMSAdapter, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if !slices.Contains(smsProviders, cfg.Provider) {
		return nil, fmt.Errorf("%w: unknown SMS provider %q", ErrInvalidConfig, cfg.Provider)
	}

	return &SMSAdapter{
		config: cfg,
		client: resty.New().SetBaseURL(cfg.GatewayURL),
	}, nil
}

// Channel implements Adapter.
func (a *SMSAdapter) Channel() notification.Channel {
	return notification.ChannelSMS
}

// Send implements Adapter. The subject is ignored: SMS has no subject line.
func (a *SMSAdapter) Send(ctx context.Context, address, _, body string) (*Result, error) {
	var out smsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+a.config.APIKey).
		SetBody(smsRequest{
			To:      address,
			From:    a.config.SenderName,
			Message: body,
		}).
		SetResult(&out).
		Post("/v1/messages")
	if err != nil {
		// Network-level failures (DNS, timeout, connection refused) are
		// retryable.
		return nil, Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}

	if err := classifyStatus(resp.StatusCode(), resp.String()); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, Permanent(fmt.Errorf("%w: gateway rejected message: %s", ErrSendFailed, out.Error))
	}

	return &Result{
		ProviderMessageID: out.MessageID,
		Provider:          a.config.Provider,
		Cost:              out.Cost,
	}, nil
}

// classifyStatus maps HTTP statuses to delivery error classes. Rate limiting,
// request timeout and server errors are worth retrying; any other non-2xx is
// a request we should not repeat.
func classifyStatus(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return Transient(fmt.Errorf("%w: gateway returned %d: %s", ErrSendFailed, status, body))
	default:
		return Permanent(fmt.Errorf("%w: gateway returned %d: %s", ErrSendFailed, status, body))
	}
}
