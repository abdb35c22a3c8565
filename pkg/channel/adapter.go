package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Result reports a successful hand-off to a provider.
type Result struct {
	// ProviderMessageID is the provider's identifier for the accepted
	// message. Used to match delivery webhooks back to our records. Empty
	// for channels without delivery tracking.
	ProviderMessageID string

	// Provider names the gateway that accepted the message, e.g. "orange".
	Provider string

	// Cost is the per-message price reported by the provider, when known.
	Cost float64
}

// ErrorClass separates failures the dispatcher should retry from failures
// that will never succeed.
type ErrorClass string

const (
	// ErrorClassTransient covers timeouts, rate limits and provider
	// outages. Retrying later may succeed.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent covers rejected addresses, authentication
	// failures and malformed requests. Retrying is pointless.
	ErrorClassPermanent ErrorClass = "permanent"
)

// DeliveryError is a classified provider failure.
type DeliveryError struct {
	Class ErrorClass
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery error: %v", e.Class, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Transient wraps an error as a retryable delivery failure.
func Transient(err error) *DeliveryError {
	return &DeliveryError{Class: ErrorClassTransient, Err: err}
}

// Permanent wraps an error as a non-retryable delivery failure.
func Permanent(err error) *DeliveryError {
	return &DeliveryError{Class: ErrorClassPermanent, Err: err}
}

// IsPermanent reports whether err is classified as a permanent delivery
// failure. Unclassified errors are treated as transient, so an adapter that
// forgets to classify keeps its notifications retryable.
func IsPermanent(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Class == ErrorClassPermanent
}

// Adapter sends one rendered message over one transport.
type Adapter interface {
	// Channel reports which notification channel this adapter serves.
	Channel() notification.Channel

	// Send delivers the rendered message to the address. The address has
	// already been validated for the channel. Failures should be returned
	// as a *DeliveryError so the dispatcher can classify them.
	Send(ctx context.Context, address, subject, body string) (*Result, error)
}
