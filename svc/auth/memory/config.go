package memory

import "time"

// Config tunes the in-process provider.
type Config struct {
	BcryptCost        int           `env:"MEMORY_AUTH_BCRYPT_COST" envDefault:"10"`
	SessionTTL        time.Duration `env:"MEMORY_AUTH_SESSION_TTL" envDefault:"1h"`
	MinPasswordLength int           `env:"MEMORY_AUTH_MIN_PASSWORD_LENGTH" envDefault:"6"`
	AutoConfirm       bool          `env:"MEMORY_AUTH_AUTO_CONFIRM" envDefault:"false"`

	// Requests per second allowed on credential endpoints; zero disables limiting.
	RateLimit float64 `env:"MEMORY_AUTH_RATE_LIMIT" envDefault:"5"`
	RateBurst int     `env:"MEMORY_AUTH_RATE_BURST" envDefault:"10"`

	OAuthRedirectURL   string `env:"MEMORY_AUTH_OAUTH_REDIRECT_URL" envDefault:"http://localhost:3000/auth/callback"`
	GoogleClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GithubClientID     string `env:"GITHUB_OAUTH_CLIENT_ID"`
	GithubClientSecret string `env:"GITHUB_OAUTH_CLIENT_SECRET"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		BcryptCost:        10,
		SessionTTL:        time.Hour,
		MinPasswordLength: 6,
		RateLimit:         5,
		RateBurst:         10,
		OAuthRedirectURL:  "http://localhost:3000/auth/callback",
	}
}
