// Package config loads typed configuration structs from the environment.
//
// Values come from process environment variables, optionally seeded from
// .env files through github.com/joho/godotenv, and are parsed into struct
// fields with github.com/caarlos0/env/v11 tags:
//
//	type Config struct {
//		DSN      string        `env:"PG_CONN_URL,required"`
//		Timeout  time.Duration `env:"KRATOS_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Each (type, prefix) pair is parsed once per process; later calls copy the
// cached value. Reset drops the cache, which tests use after t.Setenv.
package config
