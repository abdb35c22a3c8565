package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage for testing and local development.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry

	// Index of live entries per notification, enforcing the one-live-entry
	// invariant.
	byNotification map[uuid.UUID]uuid.UUID

	// Lease management
	leaseTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// NewMemoryStorage creates a new in-memory storage implementation. It starts
// a background lease expiration manager; call Close to stop it.
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		entries:        make(map[uuid.UUID]*Entry),
		byNotification: make(map[uuid.UUID]uuid.UUID),
		done:           make(chan struct{}),
	}

	ms.leaseTicker = time.NewTicker(time.Second)
	go ms.leaseExpirationManager()

	return ms
}

// Close stops the background lease expiration manager.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.leaseTicker.Stop()
	})
	return nil
}

// Enqueue implements Storage.
func (ms *MemoryStorage) Enqueue(_ context.Context, entry *Entry) error {
	if entry == nil {
		return ErrEntryNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.byNotification[entry.NotificationID]; exists {
		return ErrAlreadyQueued
	}

	// Clone to prevent external modifications.
	entryCopy := *entry
	entryCopy.Claimed = false
	entryCopy.ClaimedBy = nil
	entryCopy.ClaimedAt = nil
	entryCopy.LeaseUntil = nil

	ms.entries[entry.ID] = &entryCopy
	ms.byNotification[entry.NotificationID] = entry.ID

	return nil
}

// Claim implements Storage using priority-first, earliest-due-second
// selection so urgent deliveries jump the line while same-priority entries
// stay fair.
func (ms *MemoryStorage) Claim(_ context.Context, workerID uuid.UUID, lease time.Duration) (*Entry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Entry

	for _, entry := range ms.entries {
		if entry.Claimed {
			continue
		}
		if entry.ProcessAt.After(now) {
			continue
		}

		if best == nil ||
			entry.Priority > best.Priority ||
			(entry.Priority == best.Priority && entry.ProcessAt.Before(best.ProcessAt)) {
			best = entry
		}
	}

	if best == nil {
		return nil, ErrNothingToClaim
	}

	leaseUntil := now.Add(lease)
	best.Claimed = true
	best.ClaimedBy = &workerID
	best.ClaimedAt = &now
	best.LeaseUntil = &leaseUntil

	entryCopy := *best
	return &entryCopy, nil
}

// Release implements Storage.
func (ms *MemoryStorage) Release(_ context.Context, id uuid.UUID, processAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}

	entry.Claimed = false
	entry.ClaimedBy = nil
	entry.ClaimedAt = nil
	entry.LeaseUntil = nil
	entry.ProcessAt = processAt

	return nil
}

// Delete implements Storage.
func (ms *MemoryStorage) Delete(_ context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.entries[id]
	if !exists {
		return ErrEntryNotFound
	}

	delete(ms.byNotification, entry.NotificationID)
	delete(ms.entries, id)

	return nil
}

// Len reports how many live entries the queue holds. Intended for tests and
// health reporting.
func (ms *MemoryStorage) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.entries)
}

// leaseExpirationManager runs in background to recover entries claimed by
// dead workers. Without it, an entry claimed by a crashed worker would stay
// claimed forever and its notification would never be delivered.
func (ms *MemoryStorage) leaseExpirationManager() {
	for {
		select {
		case <-ms.leaseTicker.C:
			ms.expireLeases()
		case <-ms.done:
			return
		}
	}
}

// expireLeases resets claimed entries whose lease has passed back to
// unclaimed, making them claimable again. The notification's attempt counter
// lives on the notification itself, so reclaiming preserves failure history.
func (ms *MemoryStorage) expireLeases() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, entry := range ms.entries {
		if entry.Claimed && entry.LeaseUntil != nil && entry.LeaseUntil.Before(now) {
			entry.Claimed = false
			entry.ClaimedBy = nil
			entry.ClaimedAt = nil
			entry.LeaseUntil = nil
		}
	}
}
