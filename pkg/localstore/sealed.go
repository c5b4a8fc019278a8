package localstore

import (
	"context"
	"time"
)

// Sealer encrypts values before they reach the backing store.
// *secrets.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// SealedStorage encrypts every value stored through it.
type SealedStorage struct {
	next   Storage
	sealer Sealer
}

func NewSealedStorage(next Storage, sealer Sealer) *SealedStorage {
	return &SealedStorage{next: next, sealer: sealer}
}

// Get returns ErrNotFound for values that no longer open, e.g. after a key
// rotation, so callers treat them as absent.
func (s *SealedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, ErrNotFound
	}
	return plain, nil
}

func (s *SealedStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	return s.next.Set(ctx, key, sealed, ttl)
}

func (s *SealedStorage) Delete(ctx context.Context, keys ...string) error {
	return s.next.Delete(ctx, keys...)
}
