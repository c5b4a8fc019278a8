package auth

import (
	"context"
	"time"

	"github.com/dmitrymomot/storytime/svc/session"
)

// OAuth provider identifiers.
const (
	OAuthProviderGoogle = "google"
	OAuthProviderGithub = "github"
)

// Session is the provider's view of a signed-in user.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *session.User
}

// Provider is the hosted identity service. Implementations are created
// once and shared by the reconciler and the controller.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignInWithOAuth returns the URL the user must visit to authorize.
	SignInWithOAuth(ctx context.Context, provider string) (string, error)

	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.User, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, password string) error

	// GetSession returns nil without error when nobody is signed in.
	GetSession(ctx context.Context) (*Session, error)

	// OnAuthStateChange registers handler for every subsequent event.
	// Providers replay the current session as EventInitialSession shortly
	// after registration.
	OnAuthStateChange(handler func(Event)) Subscription
}

// Subscription detaches an event handler.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }
