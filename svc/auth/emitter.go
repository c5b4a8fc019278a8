package auth

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/dmitrymomot/storytime/pkg/broadcast"
	"github.com/dmitrymomot/storytime/pkg/logger"
)

// Emitter fans provider events out to OnAuthStateChange handlers. Provider
// adapters without a native push channel use it to publish the events their
// own calls cause.
type Emitter struct {
	events *broadcast.MemoryBroadcaster[Event]
	logger *slog.Logger
	onDrop func(EventKind)
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithEmitterLogger logs events evicted from a full handler buffer.
func WithEmitterLogger(l *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDropHook is called with the kind of every evicted event.
func WithDropHook(fn func(EventKind)) EmitterOption {
	return func(e *Emitter) { e.onDrop = fn }
}

// NewEmitter returns an Emitter whose handlers each buffer up to buffer
// events. A handler that falls further behind loses its oldest events,
// and each loss is logged and reported to the drop hook.
func NewEmitter(buffer int, opts ...EmitterOption) *Emitter {
	e := &Emitter{logger: logger.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	e.events = broadcast.NewMemoryBroadcaster(buffer,
		broadcast.WithCopy(func(ev Event) Event {
			ev.Session = ev.Session.Clone()
			return ev
		}),
		broadcast.WithDropHandler(e.dropped),
	)
	return e
}

func (e *Emitter) dropped(msg broadcast.Message[Event]) {
	e.logger.Warn("auth event dropped, handler is too slow",
		slog.String("event", msg.Data.Kind.String()),
	)
	if e.onDrop != nil {
		e.onDrop(msg.Data.Kind)
	}
}

// Subscribe delivers EventInitialSession carrying current, then every later
// event in emit order. Callers that guard their session with a lock should
// hold it across Subscribe and Emit so the replay is never older than the
// first delivered event.
func (e *Emitter) Subscribe(handler func(Event), current *Session) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := e.events.Subscribe(ctx)
	initial := current.Clone()

	go func() {
		handler(Event{Kind: EventInitialSession, Session: initial})
		for msg := range sub.Receive(ctx) {
			handler(msg.Data)
		}
	}()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
		})
	})
}

// Emit publishes kind with a copy of s to every handler.
func (e *Emitter) Emit(ctx context.Context, kind EventKind, s *Session) {
	_ = e.events.Broadcast(ctx, broadcast.Message[Event]{
		Data: Event{Kind: kind, Session: s},
	})
}

// Subscribers reports the number of attached handlers.
func (e *Emitter) Subscribers() int {
	return e.events.Subscribers()
}

// Close detaches every handler.
func (e *Emitter) Close() error {
	return e.events.Close()
}

// Clone returns a deep copy; nil stays nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		u.Metadata = maps.Clone(s.User.Metadata)
		c.User = &u
	}
	return &c
}
