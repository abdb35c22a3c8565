package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage for tests and local development.
type MemoryStorage struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*Notification
	logs          map[uuid.UUID][]LogEntry
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[uuid.UUID]*Notification),
		logs:          make(map[uuid.UUID][]LogEntry),
	}
}

func (ms *MemoryStorage) Create(ctx context.Context, n *Notification) error {
	if n == nil {
		return ErrNotificationNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.notifications[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, n.ID)
	}

	// Clone to protect stored state from later caller mutations.
	cp := cloneNotification(n)
	ms.notifications[n.ID] = cp
	return nil
}

func (ms *MemoryStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	n, ok := ms.notifications[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneNotification(n), nil
}

func (ms *MemoryStorage) Update(ctx context.Context, n *Notification) error {
	if n == nil {
		return ErrNotificationNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.notifications[n.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, n.ID)
	}
	ms.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (ms *MemoryStorage) AppendLog(ctx context.Context, entry *LogEntry) error {
	if entry == nil {
		return nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.logs[entry.NotificationID] = append(ms.logs[entry.NotificationID], *entry)
	return nil
}

func (ms *MemoryStorage) ListLogs(ctx context.Context, notificationID uuid.UUID) ([]LogEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries := ms.logs[notificationID]
	out := make([]LogEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (ms *MemoryStorage) ListSentOn(ctx context.Context, date time.Time) ([]Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	y, m, d := date.UTC().Date()

	var out []Notification
	for _, n := range ms.notifications {
		if n.SentAt == nil {
			continue
		}
		ny, nm, nd := n.SentAt.UTC().Date()
		if ny == y && nm == m && nd == d {
			out = append(out, *cloneNotification(n))
		}
	}

	// Deterministic order keeps downstream aggregation reproducible.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (ms *MemoryStorage) ListFailedOn(ctx context.Context, date time.Time) ([]Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	y, m, d := date.UTC().Date()

	var out []Notification
	for _, n := range ms.notifications {
		if n.Status != StatusFailed {
			continue
		}
		ny, nm, nd := n.UpdatedAt.UTC().Date()
		if ny == y && nm == m && nd == d {
			out = append(out, *cloneNotification(n))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (ms *MemoryStorage) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Notification
	for _, n := range ms.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *cloneNotification(n))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneNotification(n *Notification) *Notification {
	cp := *n
	if n.Variables != nil {
		cp.Variables = make(map[string]string, len(n.Variables))
		for k, v := range n.Variables {
			cp.Variables[k] = v
		}
	}
	if n.Related != nil {
		rel := *n.Related
		cp.Related = &rel
	}
	cp.ScheduledAt = cloneTime(n.ScheduledAt)
	cp.SentAt = cloneTime(n.SentAt)
	cp.ReadAt = cloneTime(n.ReadAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
