package localstore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// Well-known keys.
const (
	KeyAuthToken = "storytime-auth-token"
	KeyStories   = "storytime-stories"
)

var ErrNotFound = errors.New("localstore: key not found")

// Storage is a small key/value store. A zero ttl keeps the value forever.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStorage is an in-process Storage. Safe for concurrent use.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[key]
	if !ok || (!e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)) {
		return nil, ErrNotFound
	}
	return slices.Clone(e.value), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
	return nil
}

// Keys lists stored keys in sorted order, expired ones included.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.items))
}
