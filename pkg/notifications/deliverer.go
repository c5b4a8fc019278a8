package notifications

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/storytime/pkg/broadcast"
	"github.com/dmitrymomot/storytime/pkg/logger"
)

// Deliverer handles real-time notification delivery.
type Deliverer interface {
	Deliver(ctx context.Context, notif Notification) error
}

// NoOpDeliverer is a deliverer that does nothing.
type NoOpDeliverer struct{}

func (NoOpDeliverer) Deliver(context.Context, Notification) error { return nil }

// BroadcastDeliverer fans notifications out to per-user subscribers.
type BroadcastDeliverer struct {
	mu           sync.Mutex
	bufferSize   int
	broadcasters map[string]*broadcast.MemoryBroadcaster[Notification]
	logger       *slog.Logger
}

// BroadcastDelivererOption configures a BroadcastDeliverer.
type BroadcastDelivererOption func(*BroadcastDeliverer)

func WithBroadcastLogger(l *slog.Logger) BroadcastDelivererOption {
	return func(b *BroadcastDeliverer) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBroadcastDeliverer(bufferSize int, opts ...BroadcastDelivererOption) *BroadcastDeliverer {
	b := &BroadcastDeliverer{
		bufferSize:   bufferSize,
		broadcasters: make(map[string]*broadcast.MemoryBroadcaster[Notification]),
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (d *BroadcastDeliverer) Deliver(ctx context.Context, notif Notification) error {
	return d.broadcaster(notif.UserID).Broadcast(ctx, broadcast.Message[Notification]{Data: notif})
}

// Subscribe returns a subscriber for a user's notifications.
func (d *BroadcastDeliverer) Subscribe(ctx context.Context, userID string) broadcast.Subscriber[Notification] {
	return d.broadcaster(userID).Subscribe(ctx)
}

// Close closes all user broadcasters.
func (d *BroadcastDeliverer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for userID, b := range d.broadcasters {
		if err := b.Close(); err != nil {
			d.logger.Error("failed to close notification broadcaster",
				logger.UserID(userID),
				logger.Error(err),
			)
		}
		delete(d.broadcasters, userID)
	}
	return nil
}

func (d *BroadcastDeliverer) broadcaster(userID string) *broadcast.MemoryBroadcaster[Notification] {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.broadcasters[userID]
	if !ok {
		b = broadcast.NewMemoryBroadcaster[Notification](d.bufferSize)
		d.broadcasters[userID] = b
	}
	return b
}
