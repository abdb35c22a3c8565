package preferences

import (
	"context"
	"fmt"
	"sync"
)

// Storage handles preference persistence. The engine only ever reads; writes
// come from the recipient-facing settings surface.
type Storage interface {
	// Get retrieves the preferences of one recipient. Returns ErrNotFound
	// when the recipient never configured anything.
	Get(ctx context.Context, recipientID string) (*Preferences, error)

	// Save stores or replaces the preferences of one recipient.
	Save(ctx context.Context, prefs Preferences) error
}

// MemoryStorage implements Storage for tests and local development.
type MemoryStorage struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryStorage creates an empty in-memory preference store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{prefs: make(map[string]Preferences)}
}

func (ms *MemoryStorage) Get(ctx context.Context, recipientID string) (*Preferences, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p, ok := ms.prefs[recipientID]
	if !ok {
		return nil, fmt.Errorf("%w: recipient %s", ErrNotFound, recipientID)
	}
	cp := p
	return &cp, nil
}

func (ms *MemoryStorage) Save(ctx context.Context, prefs Preferences) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.prefs[prefs.RecipientID] = prefs
	return nil
}
