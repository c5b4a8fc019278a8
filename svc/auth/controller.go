package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/storytime/pkg/localstore"
	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/pkg/notifications"
	"github.com/dmitrymomot/storytime/pkg/validator"
	"github.com/dmitrymomot/storytime/svc/session"
)

// ActionRecorder observes controller actions. *metrics.Metrics satisfies it.
type ActionRecorder interface {
	ActionFinished(action string, started time.Time, err error)
}

// Controller implements the user-facing auth actions.
type Controller struct {
	provider  Provider
	store     session.Dispatcher
	guard     SessionGuard
	navigator Navigator
	notifier  Notifier
	local     localstore.Storage
	logger    *slog.Logger
	recorder  ActionRecorder
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSessionGuard routes logouts through g so stale initializations are
// discarded. Without a guard LOGOUT is dispatched directly.
func WithSessionGuard(g SessionGuard) ControllerOption {
	return func(c *Controller) {
		c.guard = g
	}
}

// WithNavigator sets where route changes go. Nil is ignored.
func WithNavigator(n Navigator) ControllerOption {
	return func(c *Controller) {
		if n != nil {
			c.navigator = n
		}
	}
}

// WithNotifier sets where user-facing messages go. Nil is ignored.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLocalStorage sets the storage cleared on logout.
func WithLocalStorage(s localstore.Storage) ControllerOption {
	return func(c *Controller) {
		c.local = s
	}
}

// WithControllerLogger sets the logger. Nil is ignored.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithActionRecorder reports each action's duration and outcome.
func WithActionRecorder(rec ActionRecorder) ControllerOption {
	return func(c *Controller) {
		c.recorder = rec
	}
}

// NewController returns a Controller that navigates and notifies nowhere
// until configured.
func NewController(provider Provider, store session.Dispatcher, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider:  provider,
		store:     store,
		navigator: noopNavigator{},
		notifier:  noopNotifier{},
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("auth"))
	return c
}

// Login signs in with email and password. Session state is left to the
// reconciler's SIGNED_IN handling; on success the user is sent to the
// dashboard.
func (c *Controller) Login(ctx context.Context, email, password string) (err error) {
	defer c.track("login", time.Now(), &err)

	if verr := validator.Apply(
		validator.RequiredString("email", email),
		validator.RequiredString("password", password),
	); verr != nil {
		c.notifier.Notify(ctx, notifications.Destructive("Missing information", MsgRequiredFields))
		return errors.Join(ErrMissingCredentials, verr)
	}

	c.setLoading(ctx, true)
	defer c.setLoading(ctx, false)

	if _, err := c.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password); err != nil {
		c.HandleError(ctx, err)
		return fmt.Errorf("login: %w", err)
	}

	c.logger.InfoContext(ctx, "signed in", logger.Email(email))
	c.navigator.Push(RouteDashboard)
	return nil
}

// LoginWithOAuth sends the user to the provider's authorization page.
func (c *Controller) LoginWithOAuth(ctx context.Context, provider string) (err error) {
	defer c.track("login_oauth", time.Now(), &err)

	c.setLoading(ctx, true)
	defer c.setLoading(ctx, false)

	authURL, err := c.provider.SignInWithOAuth(ctx, provider)
	if err != nil {
		c.HandleError(ctx, err)
		return fmt.Errorf("oauth login: %w", err)
	}

	c.navigator.Push(authURL)
	return nil
}

// Signup registers a new account and sends the user to email verification.
func (c *Controller) Signup(ctx context.Context, email, password, name string) (err error) {
	defer c.track("signup", time.Now(), &err)

	if verr := validator.Apply(validator.ValidEmail("email", email)); verr != nil {
		c.notifier.Notify(ctx, notifications.Destructive("Invalid email", MsgInvalidEmail))
		return errors.Join(ErrInvalidEmail, verr)
	}

	c.setLoading(ctx, true)
	defer c.setLoading(ctx, false)

	if _, err := c.provider.SignUp(ctx, strings.TrimSpace(email), password, map[string]any{"name": name}); err != nil {
		c.HandleError(ctx, err)
		return fmt.Errorf("signup: %w", err)
	}

	c.notifier.Notify(ctx, notifications.Success(
		"Check your email",
		"We sent you a confirmation link. Please verify your email to continue.",
	))
	c.navigator.Push(RouteVerifyEmail)
	return nil
}

// Logout clears the session locally first, then best-effort clears cached
// data and signs out remotely, and finally navigates home. It never fails.
func (c *Controller) Logout(ctx context.Context) {
	defer c.track("logout", time.Now(), nil)

	if c.guard != nil {
		c.guard.Invalidate(ctx)
	} else {
		c.dispatch(ctx, session.Logout())
	}

	if c.local != nil {
		bestEffort(ctx, c.logger, "clear_local_storage",
			c.local.Delete(ctx, localstore.KeyAuthToken, localstore.KeyStories))
	}
	bestEffort(ctx, c.logger, "provider_sign_out", c.provider.SignOut(ctx))

	c.navigator.Push(RouteHome)
}

// ResetPassword asks the provider to send a recovery email.
func (c *Controller) ResetPassword(ctx context.Context, email string) (err error) {
	defer c.track("reset_password", time.Now(), &err)

	c.setLoading(ctx, true)
	defer c.setLoading(ctx, false)

	if err := c.provider.ResetPasswordForEmail(ctx, strings.TrimSpace(email)); err != nil {
		c.HandleError(ctx, err)
		return fmt.Errorf("reset password: %w", err)
	}

	c.notifier.Notify(ctx, notifications.Success(
		"Password reset email sent",
		"Check your inbox for instructions to reset your password.",
	))
	return nil
}

// UpdatePassword changes the signed-in user's password. A 401 means the
// session is gone, so the state is cleared and the user is sent to login.
func (c *Controller) UpdatePassword(ctx context.Context, newPassword string) (err error) {
	defer c.track("update_password", time.Now(), &err)

	c.setLoading(ctx, true)
	defer c.setLoading(ctx, false)

	if err := c.provider.UpdatePassword(ctx, newPassword); err != nil {
		c.HandleError(ctx, err, WithClearOnUnauthorized())
		return fmt.Errorf("update password: %w", err)
	}

	c.notifier.Notify(ctx, notifications.Success("Password updated", "Your password has been changed."))
	c.navigator.Push(RouteDashboard)
	return nil
}

// ClearError removes the user-facing error from the session state.
func (c *Controller) ClearError(ctx context.Context) {
	c.dispatch(ctx, session.SetError(""))
}

type handleConfig struct {
	clearOnUnauthorized bool
}

// HandleOption configures HandleError.
type HandleOption func(*handleConfig)

// WithClearOnUnauthorized makes a 401 log the user out and replace the
// current route with the login page.
func WithClearOnUnauthorized() HandleOption {
	return func(cfg *handleConfig) {
		cfg.clearOnUnauthorized = true
	}
}

// HandleError classifies err, records the message in the session state and
// notifies the user once. It reports whether there was an error to handle.
func (c *Controller) HandleError(ctx context.Context, err error, opts ...HandleOption) bool {
	if err == nil {
		return false
	}

	var cfg handleConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	cl := Classify(err)
	c.logger.WarnContext(ctx, "auth action failed",
		logger.Status(cl.Status),
		slog.String("message", cl.Message),
		logger.Error(err),
	)

	if cl.Category == CategorySessionExpired && cfg.clearOnUnauthorized {
		if c.guard != nil {
			c.guard.Invalidate(ctx)
		} else {
			c.dispatch(ctx, session.Logout())
		}
		c.dispatch(ctx, session.SetError(cl.Message))
		c.notifier.Notify(ctx, cl.Notification())
		c.navigator.Replace(RouteLogin)
		return true
	}

	c.dispatch(ctx, session.SetError(cl.Message))
	c.notifier.Notify(ctx, cl.Notification())
	return true
}

func (c *Controller) setLoading(ctx context.Context, loading bool) {
	c.dispatch(ctx, session.SetLoading(loading))
}

func (c *Controller) dispatch(ctx context.Context, a session.Action) {
	if _, err := c.store.Dispatch(ctx, a); err != nil {
		c.logger.WarnContext(ctx, "dispatch failed",
			logger.Action(string(a.Kind)),
			logger.Error(err),
		)
	}
}

func (c *Controller) track(action string, started time.Time, errp *error) {
	if c.recorder == nil {
		return
	}
	var err error
	if errp != nil {
		err = *errp
	}
	c.recorder.ActionFinished(action, started, err)
}
