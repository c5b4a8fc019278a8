package main

import "time"

// Drivers.
const (
	driverMemory   = "memory"
	driverKratos   = "kratos"
	driverPostgres = "postgres"
	driverRedis    = "redis"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`

	// AppURL is the web client links in emails point at.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:3000"`

	// AuthDriver selects the identity provider: memory or kratos.
	AuthDriver string `env:"AUTH_DRIVER" envDefault:"memory"`
	// StoreDriver selects the profile store: memory or postgres.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	// CacheDriver selects client-side storage: memory or redis.
	CacheDriver string `env:"CACHE_DRIVER" envDefault:"memory"`

	// StorageKey, a base64 32-byte key, encrypts values in client-side storage.
	StorageKey string `env:"STORAGE_ENCRYPTION_KEY"`

	ReadyTimeout time.Duration `env:"RECONCILE_READY_TIMEOUT" envDefault:"10s"`
	SettleDelay  time.Duration `env:"RECONCILE_SETTLE_DELAY" envDefault:"250ms"`
}
