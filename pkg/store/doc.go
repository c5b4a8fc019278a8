// Package store hosts a pure reducer behind a small, concurrency-safe
// container: the single mutable cell that holds application state.
//
// A Store is built from an initial state and a Reducer. Dispatch applies the
// reducer to the current state under a mutex, so actions are applied strictly
// in the order Dispatch is called, then reports the change to observers
// (synchronously, in registration order) and to subscribers (asynchronously,
// through a broadcast channel that keeps the newest changes when a reader
// falls behind).
//
//	type counterAction struct{ delta int }
//
//	s := store.MustNew(0, func(n int, a counterAction) int { return n + a.delta },
//	    store.WithObserver(func(ctx context.Context, c store.Change[int, counterAction]) {
//	        log.Printf("%d -> %d", c.Prev, c.Next)
//	    }),
//	)
//	_, _ = s.Dispatch(ctx, counterAction{delta: 2})
//	s.State() // 2
//
// Observers run while the store lock is held and must not call Dispatch.
package store
