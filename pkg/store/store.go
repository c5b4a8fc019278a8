package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrymomot/storytime/pkg/broadcast"
)

// Reducer computes the next state. It must be pure.
type Reducer[S, A any] func(state S, action A) S

// Change describes one applied action.
type Change[S, A any] struct {
	Seq    uint64
	Action A
	Prev   S
	Next   S
}

// Store is a concurrency-safe reducer host.
type Store[S, A any] struct {
	mu          sync.Mutex
	state       S
	seq         uint64
	closed      bool
	reducer     Reducer[S, A]
	copy        func(S) S
	observers   []Observer[S, A]
	bufferSize  int
	subscribers *broadcast.MemoryBroadcaster[Change[S, A]]
}

// New creates a store seeded with initial.
func New[S, A any](initial S, reducer Reducer[S, A], opts ...Option[S, A]) (*Store[S, A], error) {
	if reducer == nil {
		return nil, ErrNilReducer
	}

	s := &Store[S, A]{
		reducer:    reducer,
		copy:       func(v S) S { return v },
		bufferSize: 16,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.copy(initial)
	s.subscribers = broadcast.NewMemoryBroadcaster(s.bufferSize,
		broadcast.WithCopy(s.copyChange),
	)

	return s, nil
}

// MustNew is New that panics on invalid arguments.
func MustNew[S, A any](initial S, reducer Reducer[S, A], opts ...Option[S, A]) *Store[S, A] {
	s, err := New(initial, reducer, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create store: %v", err))
	}
	return s
}

// State returns a copy of the current state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copy(s.state)
}

// Dispatch applies action and returns the resulting state.
func (s *Store[S, A]) Dispatch(ctx context.Context, action A) (S, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.copy(s.state), ErrClosed
	}

	prev := s.state
	s.state = s.reducer(prev, action)
	s.seq++

	change := Change[S, A]{Seq: s.seq, Action: action, Prev: prev, Next: s.state}
	for _, obs := range s.observers {
		obs(ctx, s.copyChange(change))
	}
	_ = s.subscribers.Broadcast(ctx, broadcast.Message[Change[S, A]]{Data: change})

	return s.copy(s.state), nil
}

func (s *Store[S, A]) copyChange(c Change[S, A]) Change[S, A] {
	c.Prev = s.copy(c.Prev)
	c.Next = s.copy(c.Next)
	return c
}

// Subscribe streams every subsequent change until ctx ends or the
// subscriber is closed.
func (s *Store[S, A]) Subscribe(ctx context.Context) broadcast.Subscriber[Change[S, A]] {
	return s.subscribers.Subscribe(ctx)
}

// Close rejects further dispatches and closes all subscribers.
func (s *Store[S, A]) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.subscribers.Close()
}
