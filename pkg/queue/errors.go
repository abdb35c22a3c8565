package queue

import "errors"

var (
	// ErrNothingToClaim is returned by Claim when no entry is due. This is a
	// normal condition, not a failure.
	ErrNothingToClaim = errors.New("no queue entry available to claim")

	// ErrAlreadyQueued is returned when enqueueing a notification that
	// already has a live queue entry.
	ErrAlreadyQueued = errors.New("notification already queued")

	// ErrEntryNotFound is returned when the referenced entry does not exist.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrEntryNil is returned when a nil entry is passed to storage.
	ErrEntryNil = errors.New("queue entry cannot be nil")

	// ErrStorageNil is returned when constructing a worker without storage.
	ErrStorageNil = errors.New("queue storage cannot be nil")

	// ErrProcessorNil is returned when constructing a worker without a
	// processor.
	ErrProcessorNil = errors.New("queue processor cannot be nil")

	// ErrWorkerAlreadyStarted is returned when Start is called twice.
	ErrWorkerAlreadyStarted = errors.New("worker already started")

	// ErrWorkerNotStarted is returned when Stop is called before Start.
	ErrWorkerNotStarted = errors.New("worker not started")
)
