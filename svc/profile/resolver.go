package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/pkg/metrics"
)

// Recorder observes resolution outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	ProfileResolved(outcome string)
}

// Resolver guarantees that every authenticated user has a profile.
type Resolver struct {
	store    Store
	logger   *slog.Logger
	recorder Recorder
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder reports every resolution outcome.
func WithRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// NewResolver returns a Resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchOrCreate returns the profile for id, creating it when the store
// reports ErrNotFound or ErrNotAcceptable. Concurrent calls are not
// deduplicated; a lost creation race falls back to fetching the winner.
func (r *Resolver) FetchOrCreate(ctx context.Context, id Identity) (*Profile, error) {
	p, err := r.store.Get(ctx, id.ID)
	switch {
	case err == nil:
		r.record(metrics.OutcomeFound)
		return p, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotAcceptable):
		// create below
	default:
		r.record(metrics.OutcomeFailed)
		return nil, errors.Join(ErrFetchFailed, err)
	}

	p, err = r.store.Create(ctx, id.NewProfile())
	if errors.Is(err, ErrAlreadyExists) {
		p, err = r.store.Get(ctx, id.ID)
	}
	if err != nil {
		r.record(metrics.OutcomeFailed)
		return nil, errors.Join(ErrCreateFailed, err)
	}

	r.logger.InfoContext(ctx, "profile created",
		logger.UserID(id.ID),
		logger.Email(id.Email),
	)
	r.record(metrics.OutcomeCreated)
	return p, nil
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.ProfileResolved(outcome)
	}
}
