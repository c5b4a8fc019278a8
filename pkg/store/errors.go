package store

import "errors"

var (
	ErrNilReducer = errors.New("store: reducer cannot be nil")
	ErrClosed     = errors.New("store: closed")
)
