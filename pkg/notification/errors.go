package notification

import "errors"

var (
	ErrNotFound           = errors.New("notification not found")
	ErrAlreadyExists      = errors.New("notification already exists")
	ErrInvalidTransition  = errors.New("invalid notification status transition")
	ErrInvalidAddress     = errors.New("invalid contact address")
	ErrMissingAddress     = errors.New("contact address is required")
	ErrAttemptsExhausted  = errors.New("notification attempts exhausted")
	ErrNotificationNil    = errors.New("notification cannot be nil")
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
)
