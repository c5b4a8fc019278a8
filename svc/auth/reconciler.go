package auth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/svc/profile"
	"github.com/dmitrymomot/storytime/svc/session"
)

// ProfileResolver fetches or lazily creates a user's profile.
type ProfileResolver interface {
	FetchOrCreate(ctx context.Context, id profile.Identity) (*profile.Profile, error)
}

// EventRecorder observes reconciler activity. *metrics.Metrics satisfies it.
type EventRecorder interface {
	EventHandled(kind string)
	InitializationDiscarded()
}

type jobSource uint8

const (
	sourceEvent jobSource = iota
	sourceProbe
)

type job struct {
	source jobSource
	event  Event
	err    error
}

// Reconciler translates provider events and the initial session probe into
// session store transitions.
type Reconciler struct {
	provider Provider
	store    session.Dispatcher
	resolver ProfileResolver
	logger   *slog.Logger
	recorder EventRecorder

	queue chan job
	done  chan struct{}
	wg    sync.WaitGroup

	// mu makes "check generation, then dispatch" atomic with Invalidate.
	mu          sync.Mutex
	generation  atomic.Uint64
	initialized atomic.Bool
	mounted     atomic.Bool
	started     atomic.Bool
	stopOnce    sync.Once
	cancel      context.CancelFunc
	sub         Subscription

	ready     chan struct{}
	readyOnce sync.Once
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger. Nil is ignored.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEventRecorder reports handled events and discarded initializations.
func WithEventRecorder(rec EventRecorder) ReconcilerOption {
	return func(r *Reconciler) {
		r.recorder = rec
	}
}

// WithQueueSize bounds the number of pending jobs. Producers block while
// the queue is full.
func WithQueueSize(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.queue = make(chan job, n)
		}
	}
}

// NewReconciler wires provider events to store. Call Start to run it.
func NewReconciler(provider Provider, store session.Dispatcher, resolver ProfileResolver, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		provider: provider,
		store:    store,
		resolver: resolver,
		logger:   logger.Discard(),
		queue:    make(chan job, 32),
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("reconciler"))
	return r
}

// Start subscribes to provider events, launches the initial probe and the
// worker. It may be called once.
func (r *Reconciler) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.mounted.Store(true)
	r.sub = r.provider.OnAuthStateChange(func(e Event) {
		if !r.mounted.Load() {
			return
		}
		r.enqueue(job{source: sourceEvent, event: e})
	})

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	go func() {
		defer r.wg.Done()
		r.probe(ctx)
	}()

	return nil
}

// Stop unsubscribes from the provider and waits for the worker to exit.
// Events delivered afterwards are ignored. Stop is idempotent.
func (r *Reconciler) Stop() {
	if !r.started.Load() {
		return
	}
	r.stopOnce.Do(func() {
		r.mounted.Store(false)
		if r.sub != nil {
			r.sub.Unsubscribe()
		}
		close(r.done)
		r.cancel()
		r.wg.Wait()
	})
}

// Ready is closed once the first reconciliation has settled the session,
// signed in or not.
func (r *Reconciler) Ready() <-chan struct{} {
	return r.ready
}

// WaitReady blocks until Ready is closed or ctx is done.
func (r *Reconciler) WaitReady(ctx context.Context) error {
	if !r.started.Load() {
		return ErrNotStarted
	}
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invalidate dispatches LOGOUT, clears the initialized flag and discards
// every initialization still in flight.
func (r *Reconciler) Invalidate(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked(ctx)
}

func (r *Reconciler) invalidateLocked(ctx context.Context) {
	gen := r.generation.Add(1)
	r.initialized.Store(false)
	r.dispatch(ctx, session.Logout())
	r.logger.DebugContext(ctx, "session invalidated", logger.Generation(gen))
	r.markReady()
}

func (r *Reconciler) enqueue(j job) {
	select {
	case r.queue <- j:
	case <-r.done:
	}
}

func (r *Reconciler) run(ctx context.Context) {
	for {
		select {
		case <-r.done:
			return
		case j := <-r.queue:
			if !r.mounted.Load() {
				return
			}
			switch j.source {
			case sourceProbe:
				r.handleProbe(ctx, j.event.Session, j.err)
			default:
				r.handleEvent(ctx, j.event)
			}
		}
	}
}

// probe is the second producer: one explicit session lookup on start.
func (r *Reconciler) probe(ctx context.Context) {
	s, err := r.provider.GetSession(ctx)
	r.enqueue(job{source: sourceProbe, event: Event{Session: s}, err: err})
}

// handleProbe settles the session from the initial lookup unless an event
// got there first. A failed lookup counts as "no session".
func (r *Reconciler) handleProbe(ctx context.Context, s *Session, err error) {
	if r.recorder != nil {
		r.recorder.EventHandled("PROBE")
	}
	if err != nil {
		r.logger.WarnContext(ctx, "initial session probe failed", logger.Error(err))
	}
	if !r.initialized.CompareAndSwap(false, true) {
		r.logger.DebugContext(ctx, "probe skipped, session already initialized")
		return
	}
	if err != nil || s == nil || s.User == nil {
		r.Invalidate(ctx)
		return
	}
	r.initialize(ctx, s.User)
}

func (r *Reconciler) handleEvent(ctx context.Context, e Event) {
	if r.recorder != nil {
		r.recorder.EventHandled(e.Kind.String())
	}
	log := r.logger.With(logger.Event(e.Kind.String()))

	if e.Kind == EventSignedOut || e.Session == nil || e.Session.User == nil {
		if e.Kind == EventUnknown {
			log.WarnContext(ctx, "ignoring unrecognized auth event")
			return
		}
		log.DebugContext(ctx, "no session, logging out")
		r.Invalidate(ctx)
		return
	}

	user := e.Session.User
	switch e.Kind {
	case EventSignedIn:
		// A fresh session always initializes, whatever ran before it.
		r.initialized.Store(true)
		r.initialize(ctx, user)

	case EventUserUpdated:
		if r.initialize(ctx, user) {
			r.initialized.Store(true)
		}

	case EventInitialSession:
		if !r.initialized.CompareAndSwap(false, true) {
			log.DebugContext(ctx, "initial session already handled", logger.UserID(user.ID))
			return
		}
		r.initialize(ctx, user)

	case EventTokenRefreshed:
		r.refresh(ctx, user)

	default:
		log.WarnContext(ctx, "ignoring unrecognized auth event")
	}
}

// initialize resolves the profile and settles the session. Dispatches are
// dropped when a logout happened while the profile was being resolved.
func (r *Reconciler) initialize(ctx context.Context, user *session.User) bool {
	gen := r.generation.Load()
	log := r.logger.With(logger.UserID(user.ID), logger.Generation(gen))

	if !r.apply(ctx, gen, session.SetLoading(true)) {
		return false
	}
	if !r.store.State().IsInitialized {
		r.apply(ctx, gen, session.SetInitializing(true))
	}

	p, err := r.resolver.FetchOrCreate(ctx, user.Identity())
	if err != nil {
		log.ErrorContext(ctx, "profile resolution failed, continuing without profile", logger.Error(err))
		p = nil
	}

	if !r.apply(ctx, gen,
		session.Initialize(user, p),
		session.SetLoading(false),
		session.SetInitializing(false),
	) {
		log.InfoContext(ctx, "discarding stale initialization")
		if r.recorder != nil {
			r.recorder.InitializationDiscarded()
		}
		return false
	}
	r.markReady()
	log.InfoContext(ctx, "session initialized", slog.Bool("has_profile", p != nil))
	return true
}

// refresh keeps the loaded profile when it belongs to the refreshed user.
func (r *Reconciler) refresh(ctx context.Context, user *session.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p *profile.Profile
	if cur := r.store.State(); cur.Profile != nil && cur.Profile.ID == user.ID {
		p = cur.Profile
	}
	r.dispatch(ctx, session.LoginSuccess(user, p))
}

// apply dispatches actions only if no invalidation happened since gen.
func (r *Reconciler) apply(ctx context.Context, gen uint64, actions ...session.Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generation.Load() != gen || !r.mounted.Load() {
		return false
	}
	for _, a := range actions {
		r.dispatch(ctx, a)
	}
	return true
}

func (r *Reconciler) dispatch(ctx context.Context, a session.Action) {
	if _, err := r.store.Dispatch(ctx, a); err != nil {
		r.logger.WarnContext(ctx, "dispatch failed",
			logger.Action(string(a.Kind)),
			logger.Error(err),
		)
	}
}

func (r *Reconciler) markReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}
