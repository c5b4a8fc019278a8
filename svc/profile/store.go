package profile

import (
	"context"
	"sync"
	"time"
)

// Store persists profiles.
type Store interface {
	// Get returns ErrNotFound when the id has no profile.
	Get(ctx context.Context, id string) (*Profile, error)

	// Create inserts p and returns the stored record. It returns
	// ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, p Profile) (*Profile, error)
}

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Profile, error) {
	if id == "" {
		return nil, ErrNotAcceptable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Create(_ context.Context, p Profile) (*Profile, error) {
	if p.ID == "" || !p.SubscriptionTier.Valid() {
		return nil, ErrInvalidProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; ok {
		return nil, ErrAlreadyExists
	}
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[p.ID] = p
	return &p, nil
}

// Len reports the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
