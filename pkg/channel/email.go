package channel

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Postmark error codes that indicate the recipient or request can never
// succeed: 300 invalid email request, 406 inactive recipient.
const (
	postmarkErrInvalidRequest    = 300
	postmarkErrInactiveRecipient = 406
)

// postmarkSender is the subset of the Postmark client the adapter needs.
// Narrowed for testability.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailAdapter sends transactional email through Postmark.
type EmailAdapter struct {
	config EmailConfig
	client postmarkSender
}

// NewEmailAdapter creates a Postmark-backed email adapter. Both tokens are
// required; environments without them should register the dev adapter for
// the email channel instead.
func NewEmailAdapter(cfg EmailConfig) (*EmailAdapter, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if cfg.ReplyToEmail == "" {
		return nil, fmt.Errorf("%w: ReplyToEmail is required", ErrInvalidConfig)
	}

	return &EmailAdapter{
		config: cfg,
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
	}, nil
}

// Channel implements Adapter.
func (a *EmailAdapter) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send implements Adapter.
func (a *EmailAdapter) Send(ctx context.Context, address, subject, body string) (*Result, error) {
	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:     a.config.SenderEmail,
		ReplyTo:  a.config.ReplyToEmail,
		To:       address,
		Subject:  subject,
		TextBody: body,
	})
	if err != nil {
		return nil, Transient(fmt.Errorf("%w: %v", ErrSendFailed, err))
	}
	if resp.ErrorCode > 0 {
		wrapped := fmt.Errorf("%w: postmark error %d: %s", ErrSendFailed, resp.ErrorCode, resp.Message)
		if resp.ErrorCode == postmarkErrInvalidRequest || resp.ErrorCode == postmarkErrInactiveRecipient {
			return nil, Permanent(wrapped)
		}
		return nil, Transient(wrapped)
	}

	return &Result{
		ProviderMessageID: resp.MessageID,
		Provider:          "postmark",
	}, nil
}
