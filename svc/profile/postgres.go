package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/storytime/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by PGStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	selectProfileQuery = `SELECT id::text, name, email, avatar_url, subscription_tier, created_at, updated_at
FROM profiles WHERE id = $1`

	insertProfileQuery = `INSERT INTO profiles (id, name, email, avatar_url, subscription_tier)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text, name, email, avatar_url, subscription_tier, created_at, updated_at`
)

// PGStore is a Store backed by the profiles table.
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id string) (*Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, selectProfileQuery, id))
	switch {
	case err == nil:
		return p, nil
	case pg.IsNotFoundError(err):
		return nil, ErrNotFound
	case pg.IsInvalidTextError(err):
		return nil, errors.Join(ErrNotAcceptable, err)
	default:
		return nil, errors.Join(ErrFetchFailed, err)
	}
}

func (s *PGStore) Create(ctx context.Context, in Profile) (*Profile, error) {
	if in.ID == "" || !in.SubscriptionTier.Valid() {
		return nil, ErrInvalidProfile
	}

	p, err := scanProfile(s.db.QueryRow(ctx, insertProfileQuery,
		in.ID, in.Name, in.Email, in.AvatarURL, string(in.SubscriptionTier),
	))
	switch {
	case err == nil:
		return p, nil
	case pg.IsDuplicateKeyError(err):
		return nil, ErrAlreadyExists
	default:
		return nil, errors.Join(ErrCreateFailed, err)
	}
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p    Profile
		tier string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.AvatarURL, &tier, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.SubscriptionTier = Tier(tier)
	return &p, nil
}
