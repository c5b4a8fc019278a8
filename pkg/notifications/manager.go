package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storytime/pkg/logger"
)

// Manager orchestrates notification storage and delivery.
type Manager struct {
	storage   Storage
	deliverer Deliverer
	logger    *slog.Logger
	now       func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(storage Storage, deliverer Deliverer, opts ...ManagerOption) *Manager {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if deliverer == nil {
		deliverer = NoOpDeliverer{}
	}

	m := &Manager{
		storage:   storage,
		deliverer: deliverer,
		logger:    logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send stores the notification and attempts real-time delivery.
// Only a storage failure is returned.
func (m *Manager) Send(ctx context.Context, notif Notification) (Notification, error) {
	if notif.ID == "" {
		notif.ID = uuid.New().String()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = m.now()
	}
	if notif.Variant == "" {
		notif.Variant = VariantDefault
	}

	if err := m.storage.Create(ctx, notif); err != nil {
		return notif, fmt.Errorf("failed to store notification: %w", err)
	}

	if err := m.deliverer.Deliver(ctx, notif); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to deliver notification, but it was stored",
			slog.String("notification_id", notif.ID),
			logger.UserID(notif.UserID),
			logger.Error(err),
		)
	}

	return notif, nil
}

// Notify is the fire-and-forget form of Send.
func (m *Manager) Notify(ctx context.Context, notif Notification) {
	if _, err := m.Send(ctx, notif); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "notification dropped",
			slog.String("title", notif.Title),
			logger.Error(err),
		)
	}
}

func (m *Manager) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return m.storage.List(ctx, userID, limit)
}

func (m *Manager) Clear(ctx context.Context, userID string) error {
	return m.storage.Clear(ctx, userID)
}
