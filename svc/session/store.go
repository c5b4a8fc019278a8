package session

import (
	"context"

	"github.com/dmitrymomot/storytime/pkg/store"
)

// Store hosts the session reducer.
type Store = store.Store[State, Action]

// Change is one applied session transition.
type Change = store.Change[State, Action]

// Dispatcher is the write side of Store.
type Dispatcher interface {
	Dispatch(ctx context.Context, action Action) (State, error)
	State() State
}

// NewStore returns a store seeded with Initial and driven by Reduce. Every
// state it hands out is a deep copy.
func NewStore(opts ...store.Option[State, Action]) *Store {
	opts = append([]store.Option[State, Action]{store.WithCopy[State, Action](State.clone)}, opts...)
	return store.MustNew[State, Action](Initial(), Reduce, opts...)
}

// ActionRecorder receives every applied action kind together with the
// resulting authentication status. *metrics.Metrics satisfies it.
type ActionRecorder interface {
	ActionApplied(kind string, authenticated bool)
}

// WithRecorder reports applied actions to rec.
func WithRecorder(rec ActionRecorder) store.Option[State, Action] {
	return store.WithObserver[State, Action](func(_ context.Context, c Change) {
		rec.ActionApplied(string(c.Action.Kind), c.Next.IsAuthenticated)
	})
}
