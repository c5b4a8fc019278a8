package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/storytime/pkg/logger"
)

// RouterOption extends the ops router.
type RouterOption func(*routerConfig)

type routerConfig struct {
	logger *slog.Logger
	checks map[string]Check
	routes map[string]http.Handler
}

func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCheck adds a named readiness check.
func WithCheck(name string, check Check) RouterOption {
	return func(c *routerConfig) { c.checks[name] = check }
}

// WithRoute mounts an extra GET handler.
func WithRoute(pattern string, h http.Handler) RouterOption {
	return func(c *routerConfig) { c.routes[pattern] = h }
}

// NewOpsRouter serves /metrics from gatherer plus /healthz and /readyz.
func NewOpsRouter(gatherer prometheus.Gatherer, opts ...RouterOption) http.Handler {
	cfg := &routerConfig{
		logger: logger.Discard(),
		checks: make(map[string]Check),
		routes: make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", LivenessHandler())
	r.Get("/readyz", ReadinessHandler(cfg.logger, cfg.checks))
	for pattern, h := range cfg.routes {
		r.Method(http.MethodGet, pattern, h)
	}
	return r
}
