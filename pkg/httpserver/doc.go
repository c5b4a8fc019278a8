// Package httpserver runs the operational HTTP endpoints of a storytime
// process: Prometheus metrics, liveness and readiness probes, and any extra
// read-only routes the caller mounts.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	h := httpserver.NewOpsRouter(registry,
//		httpserver.WithCheck("redis", redis.Healthcheck(client)),
//	)
//	err := srv.Run(ctx, h) // returns after ctx is cancelled
package httpserver
