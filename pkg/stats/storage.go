package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// ErrNotFound is returned when no statistics exist for the requested day.
var ErrNotFound = errors.New("no statistics for date")

// Storage persists daily statistics. Save is an upsert keyed by Date.
type Storage interface {
	Save(ctx context.Context, s *DailyStatistics) error
	Get(ctx context.Context, date time.Time) (*DailyStatistics, error)
}

// MemoryStorage implements Storage for tests and local development.
type MemoryStorage struct {
	mu   sync.RWMutex
	days map[time.Time]*DailyStatistics
}

// NewMemoryStorage creates an empty in-memory statistics store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{days: make(map[time.Time]*DailyStatistics)}
}

// Save implements Storage.
func (ms *MemoryStorage) Save(_ context.Context, s *DailyStatistics) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.days[Day(s.Date)] = clone(s)
	return nil
}

// Get implements Storage.
func (ms *MemoryStorage) Get(_ context.Context, date time.Time) (*DailyStatistics, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, ok := ms.days[Day(date)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func clone(s *DailyStatistics) *DailyStatistics {
	cp := *s
	if s.ByType != nil {
		cp.ByType = make(map[notification.Type]int, len(s.ByType))
		for k, v := range s.ByType {
			cp.ByType[k] = v
		}
	}
	return &cp
}
