package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster is the in-process Broadcaster. Safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	copy        func(T) T
	onDrop      func(Message[T])
	closed      bool
	mu          sync.RWMutex
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers buffer up to
// bufferSize messages (at least 1).
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option[T]) *MemoryBroadcaster[T] {
	b := &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber that is detached when ctx ends.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize, b.onDrop)
	if b.closed {
		_ = sub.Close()
		return sub
	}
	b.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.unsubscribe(sub)
		}()
	}

	return &handle[T]{subscriber: sub, b: b}
}

// Broadcast delivers msg to every subscriber without blocking.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	for sub := range b.subscribers {
		m := msg
		if b.copy != nil {
			m.Data = b.copy(msg.Data)
		}
		sub.send(m)
	}
	return nil
}

// Subscribers reports the number of active subscribers.
func (b *MemoryBroadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber. It is idempotent.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for sub := range b.subscribers {
		_ = sub.Close()
	}
	clear(b.subscribers)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
	_ = sub.Close()
}

// handle detaches the subscriber from the broadcaster on Close.
type handle[T any] struct {
	*subscriber[T]
	b *MemoryBroadcaster[T]
}

func (h *handle[T]) Close() error {
	h.b.unsubscribe(h.subscriber)
	return nil
}
