// Package session holds the client-side session state ("who is logged
// in") and the pure reducer that computes its transitions.
//
// State is mutated only by Reduce in response to one of the Kind actions.
// NewStore hosts the reducer in a pkg/store Store so dispatches are applied
// strictly in dispatch order and observers see every change:
//
//	st := session.NewStore()
//	st.Dispatch(ctx, session.SetLoading(true))
//	st.Dispatch(ctx, session.Initialize(user, profile))
//	if st.State().IsAuthenticated {
//	    // ...
//	}
//
// Consumers must not make redirect decisions until State.IsInitialized
// is true.
package session
