package preferences

import "errors"

var (
	ErrNotFound         = errors.New("preferences not found")
	ErrStorageNil       = errors.New("preferences storage cannot be nil")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)
