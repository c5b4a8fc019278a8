package kratos

import "time"

// Config points the adapter at the Kratos public API.
type Config struct {
	PublicURL    string        `env:"KRATOS_PUBLIC_URL" envDefault:"http://localhost:4433"`
	Timeout      time.Duration `env:"KRATOS_TIMEOUT" envDefault:"10s"`
	PollInterval time.Duration `env:"KRATOS_POLL_INTERVAL" envDefault:"1m"`
}
