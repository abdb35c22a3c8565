package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists queue entries. Implementations must make Claim atomic:
// two workers claiming concurrently must never receive the same entry.
type Storage interface {
	// Enqueue adds an unclaimed entry. Returns ErrAlreadyQueued when a live
	// entry (claimed or not) already references the same notification.
	Enqueue(ctx context.Context, entry *Entry) error

	// Claim atomically selects and claims the best due entry: highest
	// priority first, earliest ProcessAt within a priority tier. Entries
	// with ProcessAt in the future and entries already claimed are skipped.
	// Returns ErrNothingToClaim when nothing is due.
	Claim(ctx context.Context, workerID uuid.UUID, lease time.Duration) (*Entry, error)

	// Release returns a claimed entry to the queue, due again at processAt.
	Release(ctx context.Context, id uuid.UUID, processAt time.Time) error

	// Delete removes an entry after its notification reached a terminal
	// outcome or left the queue's responsibility.
	Delete(ctx context.Context, id uuid.UUID) error
}
