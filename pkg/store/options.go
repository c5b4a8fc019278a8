package store

import "context"

// Observer is notified synchronously after each applied action.
type Observer[S, A any] func(ctx context.Context, change Change[S, A])

// Option configures a Store during construction.
type Option[S, A any] func(*Store[S, A])

// WithObserver registers an observer. Nil observers are ignored.
func WithObserver[S, A any](obs Observer[S, A]) Option[S, A] {
	return func(s *Store[S, A]) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

// WithSubscriberBuffer sets how many changes each subscriber buffers.
func WithSubscriberBuffer[S, A any](size int) Option[S, A] {
	return func(s *Store[S, A]) {
		s.bufferSize = size
	}
}

// WithCopy sets how state values are copied before they leave the store.
// State, Dispatch, observers and subscribers each get their own copy, so
// states holding pointers or maps cannot be changed behind the reducer.
func WithCopy[S, A any](fn func(S) S) Option[S, A] {
	return func(s *Store[S, A]) {
		if fn != nil {
			s.copy = fn
		}
	}
}
