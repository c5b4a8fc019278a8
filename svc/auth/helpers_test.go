package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/notifications"
	"github.com/dmitrymomot/storytime/pkg/store"
	"github.com/dmitrymomot/storytime/svc/auth"
	"github.com/dmitrymomot/storytime/svc/profile"
	"github.com/dmitrymomot/storytime/svc/session"
)

const waitFor = 2 * time.Second

// MockProvider mocks every call except OnAuthStateChange, whose handler is
// captured so tests can push events.
type MockProvider struct {
	mock.Mock

	mu           sync.Mutex
	handler      func(auth.Event)
	unsubscribed atomic.Bool
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockProvider) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	args := m.Called(ctx, provider)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.User, error) {
	args := m.Called(ctx, email, password, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.User), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockProvider) ResetPasswordForEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockProvider) UpdatePassword(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}

func (m *MockProvider) GetSession(ctx context.Context) (*auth.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockProvider) OnAuthStateChange(handler func(auth.Event)) auth.Subscription {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
	return auth.SubscriptionFunc(func() { m.unsubscribed.Store(true) })
}

func (m *MockProvider) emit(kind auth.EventKind, u *session.User) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()

	var s *auth.Session
	if u != nil {
		s = &auth.Session{AccessToken: "token-" + u.ID, User: u}
	}
	h(auth.Event{Kind: kind, Session: s})
}

// countingResolver wraps a MemoryStore resolver, counts calls and can block
// until released.
type countingResolver struct {
	inner   *profile.Resolver
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
	fail    error
}

func newCountingResolver() *countingResolver {
	return &countingResolver{inner: profile.NewResolver(profile.NewMemoryStore())}
}

// blocking makes every call wait on release.
func (r *countingResolver) blocking() *countingResolver {
	r.gate = make(chan struct{})
	r.entered = make(chan struct{}, 8)
	return r
}

func (r *countingResolver) release() { close(r.gate) }

func (r *countingResolver) FetchOrCreate(ctx context.Context, id profile.Identity) (*profile.Profile, error) {
	r.calls.Add(1)
	if r.gate != nil {
		r.entered <- struct{}{}
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.fail != nil {
		return nil, r.fail
	}
	return r.inner.FetchOrCreate(ctx, id)
}

type eventRecorder struct {
	mu        sync.Mutex
	events    []string
	discarded int
}

func (r *eventRecorder) EventHandled(kind string) {
	r.mu.Lock()
	r.events = append(r.events, kind)
	r.mu.Unlock()
}

func (r *eventRecorder) InitializationDiscarded() {
	r.mu.Lock()
	r.discarded++
	r.mu.Unlock()
}

func (r *eventRecorder) seen(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == kind {
			return true
		}
	}
	return false
}

func (r *eventRecorder) discards() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discarded
}

// actionLog records applied session action kinds in order.
type actionLog struct {
	mu    sync.Mutex
	kinds []session.Kind
}

func (l *actionLog) observer() store.Option[session.State, session.Action] {
	return store.WithObserver[session.State, session.Action](func(_ context.Context, c session.Change) {
		l.mu.Lock()
		l.kinds = append(l.kinds, c.Action.Kind)
		l.mu.Unlock()
	})
}

func (l *actionLog) count(kind session.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, k := range l.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func (l *actionLog) all() []session.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.Kind(nil), l.kinds...)
}

type recordingNavigator struct {
	mu       sync.Mutex
	pushes   []string
	replaces []string
}

func (n *recordingNavigator) Push(path string) {
	n.mu.Lock()
	n.pushes = append(n.pushes, path)
	n.mu.Unlock()
}

func (n *recordingNavigator) Replace(path string) {
	n.mu.Lock()
	n.replaces = append(n.replaces, path)
	n.mu.Unlock()
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notifications.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note notifications.Notification) {
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []notifications.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.Notification(nil), n.notes...)
}

func newUser(id string) *session.User {
	return &session.User{ID: id, Email: id + "@example.com", Metadata: map[string]any{"name": "Reader " + id}}
}

type harness struct {
	provider *MockProvider
	store    *session.Store
	actions  *actionLog
	resolver *countingResolver
	events   *eventRecorder
	rec      *auth.Reconciler
}

func newHarness(t *testing.T, resolver *countingResolver) *harness {
	t.Helper()

	h := &harness{
		provider: new(MockProvider),
		actions:  &actionLog{},
		resolver: resolver,
		events:   &eventRecorder{},
	}
	h.store = session.NewStore(h.actions.observer())
	h.rec = auth.NewReconciler(h.provider, h.store, resolver, auth.WithEventRecorder(h.events))
	t.Cleanup(h.rec.Stop)
	return h
}

// startSignedOut starts the reconciler with an empty initial probe and
// waits for it to settle.
func (h *harness) startSignedOut(t *testing.T) {
	t.Helper()
	h.provider.On("GetSession", mock.Anything).Return(nil, nil).Once()
	require.NoError(t, h.rec.Start(context.Background()))
	require.NoError(t, h.rec.WaitReady(context.Background()))
	require.Eventually(t, func() bool { return h.events.seen("PROBE") }, waitFor, time.Millisecond)
}
