package httpserver

import "time"

type Config struct {
	Addr            string        `env:"METRICS_ADDR" envDefault:":9090"`
	ReadTimeout     time.Duration `env:"METRICS_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"METRICS_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"METRICS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewFromConfig creates a Server; zero values keep the defaults.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 4+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(append(configOpts, opts...)...)
}
