package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage is a Storage backed by Redis. Every key is namespaced with
// the configured prefix.
type RedisStorage struct {
	db     redis.UniversalClient
	prefix string
}

func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	return &RedisStorage{db: client, prefix: prefix}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: get %q: %w", key, err)
	}
	return val, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.db.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("localstore: set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	if err := s.db.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("localstore: delete: %w", err)
	}
	return nil
}
