// Package auth reconciles a hosted auth provider with the local session
// store and exposes the user-facing auth actions.
//
// Reconciler subscribes once to the provider's event stream and performs
// one initial session probe. Both feed a single job queue consumed by one
// worker goroutine, which translates every event into session store
// transitions after at most one profile fetch-or-create round trip:
//
//	st := session.NewStore()
//	rec := auth.NewReconciler(provider, st, profile.NewResolver(profiles))
//	if err := rec.Start(ctx); err != nil {
//	    return err
//	}
//	defer rec.Stop()
//
// Controller implements login, signup, logout and password flows. It only
// triggers provider calls; the reconciler owns every resulting session
// transition except logout, which is applied locally first:
//
//	ctrl := auth.NewController(provider, st,
//	    auth.WithSessionGuard(rec),
//	    auth.WithNavigator(nav),
//	    auth.WithNotifier(manager),
//	)
//	if err := ctrl.Login(ctx, email, password); err != nil {
//	    // st.State().Error holds the user-facing message
//	}
//
// Provider errors are classified by HTTP-like status into a fixed set of
// user-facing messages; see Classify.
package auth
