package broadcast

import (
	"context"
	"sync"
)

// Message wraps data of type T.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed after Close.
	Receive(ctx context.Context) <-chan Message[T]

	// Close is idempotent.
	Close() error
}

// Broadcaster sends messages to multiple subscribers.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber for the lifetime of ctx.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast delivers msg to every active subscriber without blocking.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Close closes all subscribers. Later Subscribe calls return closed
	// subscribers and Broadcast becomes a no-op.
	Close() error
}

type subscriber[T any] struct {
	ch     chan Message[T]
	closed bool
	onDrop func(Message[T])
	mu     sync.Mutex
}

func newSubscriber[T any](bufferSize int, onDrop func(Message[T])) *subscriber[T] {
	return &subscriber[T]{
		ch:     make(chan Message[T], bufferSize),
		onDrop: onDrop,
	}
}

func (s *subscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send enqueues msg, evicting the oldest buffered message when full.
// Reports false only when the subscriber is closed.
func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.ch <- msg:
			return true
		default:
		}

		select {
		case old := <-s.ch:
			if s.onDrop != nil {
				s.onDrop(old)
			}
		default:
		}
	}
}
