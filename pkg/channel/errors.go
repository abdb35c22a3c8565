package channel

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid channel adapter configuration")
	ErrSendFailed    = errors.New("failed to send message")
)
