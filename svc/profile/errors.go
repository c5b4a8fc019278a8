package profile

import "errors"

var (
	// ErrNotFound is returned when no profile exists for the id.
	ErrNotFound = errors.New("profile not found")

	// ErrNotAcceptable is returned when the store rejects the lookup itself,
	// e.g. an id the backend cannot parse. The resolver treats it like
	// ErrNotFound.
	ErrNotAcceptable = errors.New("profile lookup not acceptable")

	ErrAlreadyExists  = errors.New("profile already exists")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrCreateFailed   = errors.New("failed to create profile")
	ErrFetchFailed    = errors.New("failed to fetch profile")
)
