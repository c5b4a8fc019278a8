package auth

import (
	"context"

	"github.com/dmitrymomot/storytime/pkg/notifications"
)

// Routes the controller navigates to.
const (
	RouteHome        = "/"
	RouteLogin       = "/login"
	RouteDashboard   = "/dashboard"
	RouteVerifyEmail = "/verify-email"
)

// Navigator triggers client-side navigation. The controller does not own
// routing state.
type Navigator interface {
	Push(path string)
	Replace(path string)
}

// Notifier surfaces a transient notice to the user. Fire-and-forget.
// *notifications.Manager satisfies it.
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

// SessionGuard applies a local logout that also discards in-flight
// initializations. *Reconciler satisfies it.
type SessionGuard interface {
	Invalidate(ctx context.Context)
}

type noopNavigator struct{}

func (noopNavigator) Push(string)    {}
func (noopNavigator) Replace(string) {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, notifications.Notification) {}
