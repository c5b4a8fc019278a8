package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/storytime/pkg/config"
	"github.com/dmitrymomot/storytime/pkg/email"
	"github.com/dmitrymomot/storytime/pkg/email/templates"
	"github.com/dmitrymomot/storytime/pkg/httpserver"
	"github.com/dmitrymomot/storytime/pkg/localstore"
	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/pkg/metrics"
	"github.com/dmitrymomot/storytime/pkg/notifications"
	"github.com/dmitrymomot/storytime/pkg/pg"
	"github.com/dmitrymomot/storytime/pkg/redis"
	"github.com/dmitrymomot/storytime/pkg/secrets"
	"github.com/dmitrymomot/storytime/svc/auth"
	"github.com/dmitrymomot/storytime/svc/auth/kratos"
	"github.com/dmitrymomot/storytime/svc/auth/memory"
	"github.com/dmitrymomot/storytime/svc/profile"
	"github.com/dmitrymomot/storytime/svc/session"
)

var errUnknownDriver = errors.New("unknown driver")

// app is one wired session controller.
type app struct {
	cfg appConfig
	log *slog.Logger

	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	local      localstore.Storage
	provider   auth.Provider
	store      *session.Store
	reconciler *auth.Reconciler
	controller *auth.Controller
	notices    *notifications.Manager
	delivery   *notifications.BroadcastDeliverer
	navigator  *logNavigator
	mailer     email.Sender
	mailCfg    email.Config
	checks     map[string]httpserver.Check

	// Driver-specific extras; nil when the provider lacks them.
	poll    func(ctx context.Context) error
	confirm func(ctx context.Context, addr string) error
	redeem  func(ctx context.Context, token string) error

	closers []func()
}

func newApp(ctx context.Context, cfg appConfig, log *slog.Logger) (_ *app, err error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
		checks:   make(map[string]httpserver.Check),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	if err = a.openMailer(); err != nil {
		return nil, err
	}
	if a.local, err = a.openLocalStorage(ctx); err != nil {
		return nil, err
	}
	if cfg.StorageKey != "" {
		sealer, err := secrets.NewSealerFromString(cfg.StorageKey, "local-storage")
		if err != nil {
			return nil, fmt.Errorf("storage key: %w", err)
		}
		a.local = localstore.NewSealedStorage(a.local, sealer)
	}
	profiles, err := a.openProfileStore(ctx)
	if err != nil {
		return nil, err
	}
	if a.provider, err = a.openProvider(); err != nil {
		return nil, err
	}

	a.store = session.NewStore(session.WithRecorder(a.metrics))
	a.closers = append(a.closers, func() { _ = a.store.Close() })

	resolver := profile.NewResolver(profiles,
		profile.WithLogger(log),
		profile.WithRecorder(a.metrics),
	)
	a.reconciler = auth.NewReconciler(a.provider, a.store, resolver,
		auth.WithReconcilerLogger(log),
		auth.WithEventRecorder(a.metrics),
	)

	a.delivery = notifications.NewBroadcastDeliverer(16, notifications.WithBroadcastLogger(log))
	a.closers = append(a.closers, func() { _ = a.delivery.Close() })
	a.notices = notifications.NewManager(nil, a.delivery, notifications.WithManagerLogger(log))
	a.navigator = &logNavigator{log: log}

	a.controller = auth.NewController(a.provider, a.store,
		auth.WithSessionGuard(a.reconciler),
		auth.WithNavigator(a.navigator),
		auth.WithNotifier(a.notices),
		auth.WithLocalStorage(a.local),
		auth.WithControllerLogger(log),
		auth.WithActionRecorder(a.metrics),
	)
	return a, nil
}

func (a *app) openLocalStorage(ctx context.Context) (localstore.Storage, error) {
	switch a.cfg.CacheDriver {
	case driverMemory:
		return localstore.NewMemoryStorage(), nil
	case driverRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks["redis"] = redis.Healthcheck(client)
		return localstore.NewRedisStorage(client, cfg.KeyPrefix), nil
	}
	return nil, fmt.Errorf("cache %q: %w", a.cfg.CacheDriver, errUnknownDriver)
}

func (a *app) openProfileStore(ctx context.Context) (profile.Store, error) {
	switch a.cfg.StoreDriver {
	case driverMemory:
		return profile.NewMemoryStore(), nil
	case driverPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.checks["postgres"] = pg.Healthcheck(pool)
		return profile.NewPGStore(pool), nil
	}
	return nil, fmt.Errorf("store %q: %w", a.cfg.StoreDriver, errUnknownDriver)
}

func (a *app) openProvider() (auth.Provider, error) {
	switch a.cfg.AuthDriver {
	case driverMemory:
		var cfg memory.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		p := memory.New(cfg,
			memory.WithLogger(a.log),
			memory.WithStorage(a.local),
			memory.WithRecoveryHook(a.sendRecovery),
			memory.WithEventDropHook(a.eventDropped),
		)
		a.closers = append(a.closers, func() { _ = p.Close() })
		a.confirm = p.Confirm
		a.redeem = func(ctx context.Context, token string) error {
			_, err := p.Recover(ctx, token)
			return err
		}
		return p, nil
	case driverKratos:
		var cfg kratos.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		p, err := kratos.New(cfg,
			kratos.WithLogger(a.log),
			kratos.WithStorage(a.local),
			kratos.WithEventDropHook(a.eventDropped),
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = p.Close() })
		a.poll = func(ctx context.Context) error { return p.Poll(ctx, 0) }
		return p, nil
	}
	return nil, fmt.Errorf("auth %q: %w", a.cfg.AuthDriver, errUnknownDriver)
}

func (a *app) openMailer() error {
	if err := config.Load(&a.mailCfg); err != nil {
		return err
	}
	if !a.mailCfg.Enabled() {
		return nil
	}
	sender, err := email.New(a.mailCfg)
	if err != nil {
		return err
	}
	a.mailer = sender
	return nil
}

// sendRecovery delivers the memory provider's recovery token. Without a
// mail transport the token is only logged.
func (a *app) sendRecovery(ctx context.Context, to, token string) {
	a.log.InfoContext(ctx, "password recovery requested",
		logger.Email(to),
		slog.String("recovery_token", token),
	)
	if a.mailer == nil {
		return
	}

	link := strings.TrimRight(a.cfg.AppURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	html, err := templates.Render(ctx, templates.PasswordRecovery(link, a.mailCfg.SupportEmail))
	if err == nil {
		err = a.mailer.SendEmail(ctx, email.SendEmailParams{
			SendTo:   to,
			Subject:  templates.RecoverySubject,
			BodyHTML: html,
			Tag:      "password-recovery",
		})
	}
	if err != nil {
		a.log.WarnContext(ctx, "failed to send recovery email", logger.Email(to), logger.Error(err))
	}
}

// start runs the reconciler and waits for its first initialization.
func (a *app) start(ctx context.Context) error {
	if err := a.reconciler.Start(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, a.reconciler.Stop)

	wctx, cancel := context.WithTimeout(ctx, a.cfg.ReadyTimeout)
	defer cancel()
	if err := a.reconciler.WaitReady(wctx); err != nil {
		return fmt.Errorf("session reconciler: %w", err)
	}
	return nil
}

// settle returns once the store has been quiet for the configured delay,
// so asynchronous provider events caused by an action are reflected.
func (a *app) settle(ctx context.Context, changes <-chan struct{}) {
	timer := time.NewTimer(a.cfg.SettleDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case <-changes:
			timer.Reset(a.cfg.SettleDelay)
		}
	}
}

// watchChanges signals every applied session transition until ctx is done.
func (a *app) watchChanges(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	sub := a.store.Subscribe(ctx)
	go func() {
		for range sub.Receive(ctx) {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}

func (a *app) close() {
	for _, fn := range slices.Backward(a.closers) {
		fn()
	}
	a.closers = nil
}

// logNavigator records navigation requests; a terminal has no router.
type logNavigator struct {
	log *slog.Logger

	mu    sync.Mutex
	paths []string
}

func (n *logNavigator) Push(path string) {
	n.record("push", path)
}

func (n *logNavigator) Replace(path string) {
	n.record("replace", path)
}

func (n *logNavigator) record(mode, path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
	n.log.Info("navigate", slog.String("mode", mode), logger.Route(path))
}

// drain returns the paths recorded since the previous call.
func (n *logNavigator) drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	paths := n.paths
	n.paths = nil
	return paths
}

func newLogger(cfg appConfig, w io.Writer) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "storytime"),
		logger.WithOutput(w),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	return logger.New(opts...)
}

func (a *app) eventDropped(kind auth.EventKind) {
	a.metrics.EventDropped(kind.String())
}
