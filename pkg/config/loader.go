package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option tunes a single Load call.
type Option func(*options)

type options struct {
	prefix   string
	envFiles []string
}

// WithPrefix parses variables named prefix+tag, e.g. "STAGING_" + "PG_CONN_URL".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles loads the given dotenv files before parsing. Missing files are
// ignored; variables already present in the environment win.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = append(o.envFiles, files...) }
}

type cacheKey struct {
	typ    reflect.Type
	prefix string
}

var (
	mu    sync.Mutex
	cache = make(map[cacheKey]any)

	defaultEnvLoaded sync.Once
)

// Load parses the environment into v. Successful results are cached per
// type and prefix; failures are not, so a fixed environment can be retried.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	defaultEnvLoaded.Do(func() {
		// .env is optional
		_ = godotenv.Load()
	})
	for _, f := range o.envFiles {
		_ = godotenv.Load(f)
	}

	key := cacheKey{typ: reflect.TypeFor[T](), prefix: o.prefix}

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.ParseWithOptions(&parsed, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic("failed to load required configuration: " + err.Error())
	}
}

// Reset drops every cached configuration.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(cache)
}
