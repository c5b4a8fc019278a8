package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrAlreadyStarted     = errors.New("reconciler already started")
	ErrNotStarted         = errors.New("reconciler not started")
	ErrUnsupportedOAuth   = errors.New("unsupported oauth provider")
)

// ProviderError is a provider failure carrying an HTTP-like status.
type ProviderError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("auth provider: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("auth provider: %d: %s", e.Status, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) StatusCode() int { return e.Status }

// NewProviderError builds a ProviderError without a machine-readable code.
func NewProviderError(status int, message string) *ProviderError {
	return &ProviderError{Status: status, Message: message}
}
