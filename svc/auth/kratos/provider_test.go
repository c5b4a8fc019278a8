package kratos_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/localstore"
	"github.com/dmitrymomot/storytime/svc/auth"
	"github.com/dmitrymomot/storytime/svc/auth/kratos"
)

const waitFor = 2 * time.Second

type recorder struct {
	mu     sync.Mutex
	events []auth.Event
}

func (r *recorder) handle(e auth.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []auth.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) waitFor(t *testing.T, kinds ...auth.EventKind) {
	t.Helper()
	require.Eventually(t, func() bool {
		got := r.kinds()
		return len(got) == len(kinds)
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, kinds, r.kinds())
}

func newProvider(t *testing.T, f *fakeKratos, opts ...kratos.Option) *kratos.Provider {
	t.Helper()
	p, err := kratos.New(kratos.Config{PublicURL: f.URL(), Timeout: 5 * time.Second}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func providerStatus(t *testing.T, err error) int {
	t.Helper()
	var pe *auth.ProviderError
	require.True(t, errors.As(err, &pe), "expected provider error, got %v", err)
	return pe.StatusCode()
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := kratos.New(kratos.Config{PublicURL: "not a url"})
	assert.ErrorIs(t, err, kratos.ErrInvalidURL)

	_, err = kratos.New(kratos.Config{PublicURL: "http://kratos:4433"})
	assert.NoError(t, err)
}

func TestProvider_SignInWithPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success stores the token and emits SIGNED_IN", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		u := f.addUser("ada@example.com", "correct horse", "Ada")
		storage := localstore.NewMemoryStorage()
		p := newProvider(t, f, kratos.WithStorage(storage))

		rec := &recorder{}
		sub := p.OnAuthStateChange(rec.handle)
		defer sub.Unsubscribe()
		rec.waitFor(t, auth.EventInitialSession)

		s, err := p.SignInWithPassword(ctx, "ada@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, u.id, s.User.ID)
		assert.Equal(t, "ada@example.com", s.User.Email)
		assert.Equal(t, "Ada", s.User.Metadata["name"])
		assert.NotEmpty(t, s.AccessToken)
		assert.False(t, s.ExpiresAt.IsZero())

		rec.waitFor(t, auth.EventInitialSession, auth.EventSignedIn)

		token, err := storage.Get(ctx, localstore.KeyAuthToken)
		require.NoError(t, err)
		assert.Equal(t, s.AccessToken, string(token))

		current, err := p.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, u.id, current.User.ID)
	})

	t.Run("invalid credentials map to 400", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		f.addUser("ada@example.com", "correct horse", "")
		p := newProvider(t, f)

		_, err := p.SignInWithPassword(ctx, "ada@example.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, providerStatus(t, err))
		assert.Contains(t, err.Error(), "credentials are invalid")

		c := auth.Classify(err)
		assert.Equal(t, auth.CategoryInvalidCredentials, c.Category)
		assert.Equal(t, auth.MsgInvalidCredentials, c.Message)
	})

	t.Run("unreachable server is a network error", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		p := newProvider(t, f)
		f.srv.Close()

		_, err := p.SignInWithPassword(ctx, "ada@example.com", "pw")
		require.Error(t, err)
		assert.Equal(t, auth.CategoryNetwork, auth.Classify(err).Category)
	})
}

func TestProvider_SignUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("registration returns the identity and signs in", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		p := newProvider(t, f)

		u, err := p.SignUp(ctx, "kid@example.com", "long password", map[string]any{"name": "Kid"})
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "kid@example.com", u.Email)
		assert.Equal(t, "Kid", u.Metadata["name"])

		s, err := p.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, u.ID, s.User.ID)
	})

	t.Run("verification required leaves the user signed out", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		f.verify = true
		p := newProvider(t, f)

		_, err := p.SignUp(ctx, "kid@example.com", "long password", nil)
		require.NoError(t, err)

		s, err := p.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("duplicate account is invalid input", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		f.addUser("kid@example.com", "pw", "")
		p := newProvider(t, f)

		_, err := p.SignUp(ctx, "kid@example.com", "long password", nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, providerStatus(t, err))
		assert.Equal(t, auth.CategoryInvalidInput, auth.Classify(err).Category)
	})
}

func TestProvider_SignOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFakeKratos(t)
	f.addUser("ada@example.com", "pw", "")
	storage := localstore.NewMemoryStorage()
	p := newProvider(t, f, kratos.WithStorage(storage))

	require.NoError(t, p.SignOut(ctx), "signing out without a session is a no-op")

	_, err := p.SignInWithPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, 1, f.activeSessions())

	rec := &recorder{}
	sub := p.OnAuthStateChange(rec.handle)
	defer sub.Unsubscribe()

	require.NoError(t, p.SignOut(ctx))
	rec.waitFor(t, auth.EventInitialSession, auth.EventSignedOut)

	assert.Equal(t, 0, f.activeSessions())
	_, err = storage.Get(ctx, localstore.KeyAuthToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	s, err := p.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestProvider_GetSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("token is restored from storage", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		u := f.addUser("ada@example.com", "pw", "")
		storage := localstore.NewMemoryStorage()

		first := newProvider(t, f, kratos.WithStorage(storage))
		_, err := first.SignInWithPassword(ctx, "ada@example.com", "pw")
		require.NoError(t, err)

		second := newProvider(t, f, kratos.WithStorage(storage))
		s, err := second.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, u.id, s.User.ID)
	})

	t.Run("revoked session is dropped", func(t *testing.T) {
		t.Parallel()
		f := newFakeKratos(t)
		f.addUser("ada@example.com", "pw", "")
		storage := localstore.NewMemoryStorage()
		p := newProvider(t, f, kratos.WithStorage(storage))

		_, err := p.SignInWithPassword(ctx, "ada@example.com", "pw")
		require.NoError(t, err)
		f.revokeAll()

		rec := &recorder{}
		sub := p.OnAuthStateChange(rec.handle)
		defer sub.Unsubscribe()

		s, err := p.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		rec.waitFor(t, auth.EventInitialSession, auth.EventSignedOut)

		_, err = storage.Get(ctx, localstore.KeyAuthToken)
		assert.ErrorIs(t, err, localstore.ErrNotFound)
	})

	t.Run("nobody signed in", func(t *testing.T) {
		t.Parallel()
		p := newProvider(t, newFakeKratos(t))
		s, err := p.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}

func TestProvider_UpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFakeKratos(t)
	f.addUser("ada@example.com", "old password", "")
	p := newProvider(t, f)

	err := p.UpdatePassword(ctx, "new password")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, providerStatus(t, err))
	assert.Equal(t, auth.CategorySessionExpired, auth.Classify(err).Category)

	_, err = p.SignInWithPassword(ctx, "ada@example.com", "old password")
	require.NoError(t, err)

	err = p.UpdatePassword(ctx, "short")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, providerStatus(t, err))

	rec := &recorder{}
	sub := p.OnAuthStateChange(rec.handle)
	defer sub.Unsubscribe()

	require.NoError(t, p.UpdatePassword(ctx, "new password"))
	rec.waitFor(t, auth.EventInitialSession, auth.EventUserUpdated)

	require.NoError(t, p.SignOut(ctx))
	_, err = p.SignInWithPassword(ctx, "ada@example.com", "new password")
	require.NoError(t, err)
}

func TestProvider_ResetPasswordForEmail(t *testing.T) {
	t.Parallel()

	f := newFakeKratos(t)
	p := newProvider(t, f)

	require.NoError(t, p.ResetPasswordForEmail(context.Background(), "ada@example.com"))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"ada@example.com"}, f.recoveries)
}

func TestProvider_SignInWithOAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := newProvider(t, newFakeKratos(t))

	redirect, err := p.SignInWithOAuth(ctx, auth.OAuthProviderGoogle)
	require.NoError(t, err)
	assert.Contains(t, redirect, "https://accounts.google.com/")

	_, err = p.SignInWithOAuth(ctx, "myspace")
	assert.ErrorIs(t, err, auth.ErrUnsupportedOAuth)
}

func TestProvider_Poll(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeKratos(t)
	f.addUser("ada@example.com", "pw", "")
	p := newProvider(t, f)

	_, err := p.SignInWithPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	rec := &recorder{}
	sub := p.OnAuthStateChange(rec.handle)
	defer sub.Unsubscribe()
	rec.waitFor(t, auth.EventInitialSession)

	done := make(chan error, 1)
	go func() { done <- p.Poll(ctx, 10*time.Millisecond) }()

	f.extend(time.Hour)
	rec.waitFor(t, auth.EventInitialSession, auth.EventTokenRefreshed)

	f.revokeAll()
	rec.waitFor(t, auth.EventInitialSession, auth.EventTokenRefreshed, auth.EventSignedOut)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
