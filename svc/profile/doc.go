// Package profile owns the application-level user record that sits next to
// the auth provider's identity: display name, email, avatar and
// subscription tier, keyed 1:1 by the provider's user id.
//
// Profiles are created lazily. Resolver.FetchOrCreate fetches the record
// and, when the store reports it missing, creates one from the identity
// with tier "free":
//
//	resolver := profile.NewResolver(profile.NewPGStore(pool))
//	p, err := resolver.FetchOrCreate(ctx, profile.Identity{ID: id, Email: email})
//
// Two stores are provided: PGStore (PostgreSQL via pgx, schema in
// Migrations) and MemoryStore.
package profile
