package delivery

import "errors"

var (
	ErrRecordNotFound  = errors.New("delivery record not found")
	ErrRecordNil       = errors.New("delivery record cannot be nil")
	ErrDuplicateRecord = errors.New("delivery record already exists for provider message id")
	ErrStorageNil      = errors.New("delivery storage cannot be nil")
)
