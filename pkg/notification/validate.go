package notification

import (
	"fmt"
	"regexp"
)

var (
	// phoneRegex accepts international numbers with an optional leading plus,
	// 8 to 15 digits total.
	phoneRegex = regexp.MustCompile(`^\+?1?\d{8,15}$`)

	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateAddress checks the contact address for the given channel before any
// notification record is created. A failure here is a caller error, not a
// delivery failure: no record, no queue entry.
func ValidateAddress(ch Channel, phoneNumber, email string) error {
	switch ch {
	case ChannelSMS, ChannelChat:
		if phoneNumber == "" {
			return fmt.Errorf("%w: phone number required for channel %q", ErrMissingAddress, ch)
		}
		if !phoneRegex.MatchString(phoneNumber) {
			return fmt.Errorf("%w: %q is not a valid phone number", ErrInvalidAddress, phoneNumber)
		}
	case ChannelEmail:
		if email == "" {
			return fmt.Errorf("%w: email address required for channel %q", ErrMissingAddress, ch)
		}
		if !emailRegex.MatchString(email) {
			return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidAddress, email)
		}
	case ChannelInApp:
		// In-app delivery addresses the recipient id directly.
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedChannel, ch)
	}
	return nil
}
