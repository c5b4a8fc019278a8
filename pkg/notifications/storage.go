package notifications

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrMissingID = errors.New("notification id is required")

// Storage handles notification persistence and retrieval.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// List returns the newest notifications for a user, newest first.
	// A limit of zero returns everything.
	List(ctx context.Context, userID string, limit int) ([]Notification, error)

	// Clear removes every notification of a user.
	Clear(ctx context.Context, userID string) error
}

// MemoryStorage is an in-memory implementation of the Storage interface.
type MemoryStorage struct {
	mu            sync.RWMutex
	notifications map[string][]Notification
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string][]Notification),
	}
}

func (s *MemoryStorage) Create(_ context.Context, notif Notification) error {
	if notif.ID == "" {
		return ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[notif.UserID] = append(s.notifications[notif.UserID], notif)
	return nil
}

func (s *MemoryStorage) List(_ context.Context, userID string, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.notifications[userID]
	result := make([]Notification, len(stored))
	copy(result, stored)
	slices.Reverse(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.notifications, userID)
	return nil
}
