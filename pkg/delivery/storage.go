package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Storage persists delivery records.
type Storage interface {
	Create(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error

	// GetByProviderMessageID is the webhook reconciliation lookup.
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*Record, error)

	// ListByNotificationIDs returns all records for the given notifications,
	// used by the daily statistics aggregator.
	ListByNotificationIDs(ctx context.Context, notificationIDs []uuid.UUID) ([]*Record, error)
}

// MemoryStorage implements Storage for testing and local development.
type MemoryStorage struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]*Record
	byProvider map[string]uuid.UUID
}

// NewMemoryStorage creates an empty in-memory delivery store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records:    make(map[uuid.UUID]*Record),
		byProvider: make(map[string]uuid.UUID),
	}
}

// Create implements Storage.
func (ms *MemoryStorage) Create(_ context.Context, record *Record) error {
	if record == nil {
		return ErrRecordNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.records[record.ID]; exists {
		return ErrDuplicateRecord
	}
	if record.ProviderMessageID != "" {
		if _, exists := ms.byProvider[record.ProviderMessageID]; exists {
			return ErrDuplicateRecord
		}
	}

	ms.records[record.ID] = cloneRecord(record)
	if record.ProviderMessageID != "" {
		ms.byProvider[record.ProviderMessageID] = record.ID
	}
	return nil
}

// Update implements Storage.
func (ms *MemoryStorage) Update(_ context.Context, record *Record) error {
	if record == nil {
		return ErrRecordNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.records[record.ID]; !exists {
		return ErrRecordNotFound
	}
	ms.records[record.ID] = cloneRecord(record)
	return nil
}

// GetByProviderMessageID implements Storage.
func (ms *MemoryStorage) GetByProviderMessageID(_ context.Context, providerMessageID string) (*Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.byProvider[providerMessageID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(ms.records[id]), nil
}

// ListByNotificationIDs implements Storage.
func (ms *MemoryStorage) ListByNotificationIDs(_ context.Context, notificationIDs []uuid.UUID) ([]*Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(notificationIDs))
	for _, id := range notificationIDs {
		wanted[id] = struct{}{}
	}

	var out []*Record
	for _, record := range ms.records {
		if _, ok := wanted[record.NotificationID]; ok {
			out = append(out, cloneRecord(record))
		}
	}
	return out, nil
}

func cloneRecord(r *Record) *Record {
	c := *r
	c.DeliveredAt = cloneTime(r.DeliveredAt)
	c.ReadAt = cloneTime(r.ReadAt)
	if r.CallbackData != nil {
		c.CallbackData = make(map[string]any, len(r.CallbackData))
		for k, v := range r.CallbackData {
			c.CallbackData[k] = v
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
