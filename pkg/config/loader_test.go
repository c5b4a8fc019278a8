package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/config"
)

type providerConfig struct {
	URL     string        `env:"AUTH_URL" envDefault:"http://localhost:4433"`
	Timeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"5s"`
}

type requiredConfig struct {
	DSN string `env:"STORYTIME_TEST_DSN,required"`
}

type dotenvConfig struct {
	Value string `env:"STORYTIME_DOTENV_VALUE"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config.Reset()
		var cfg providerConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "http://localhost:4433", cfg.URL)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("environment overrides and caching", func(t *testing.T) {
		config.Reset()
		t.Setenv("AUTH_URL", "https://auth.example.com")

		var first providerConfig
		require.NoError(t, config.Load(&first))
		assert.Equal(t, "https://auth.example.com", first.URL)

		t.Setenv("AUTH_URL", "https://changed.example.com")
		var second providerConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "https://auth.example.com", second.URL, "cached value is reused")

		config.Reset()
		var third providerConfig
		require.NoError(t, config.Load(&third))
		assert.Equal(t, "https://changed.example.com", third.URL)
	})

	t.Run("prefix", func(t *testing.T) {
		config.Reset()
		t.Setenv("STAGING_AUTH_URL", "https://staging.example.com")
		var cfg providerConfig
		require.NoError(t, config.Load(&cfg, config.WithPrefix("STAGING_")))
		assert.Equal(t, "https://staging.example.com", cfg.URL)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.Reset()
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *providerConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("env file", func(t *testing.T) {
		config.Reset()
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("STORYTIME_DOTENV_VALUE=from-file\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("STORYTIME_DOTENV_VALUE") })

		var cfg dotenvConfig
		require.NoError(t, config.Load(&cfg, config.WithEnvFiles(path)))
		assert.Equal(t, "from-file", cfg.Value)
	})
}
