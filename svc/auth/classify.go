package auth

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/dmitrymomot/storytime/pkg/notifications"
)

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password. Please double-check your credentials."
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgInvalidInput       = "Invalid input format. Please check your information and try again."
	MsgRateLimited        = "Too many attempts. Please wait a moment and try again."
	MsgNetwork            = "Network error. Please check your internet connection and try again."
	MsgUnexpectedPrefix   = "An unexpected error occurred: "
	MsgRequiredFields     = "Please fill in all required fields."
	MsgInvalidEmail       = "Please enter a valid email address."
)

// Category is the outcome of classifying an error.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryInvalidCredentials
	CategorySessionExpired
	CategoryInvalidInput
	CategoryRateLimited
	CategoryNetwork
	CategoryUnexpected
)

// Classification is a user-facing description of an error.
type Classification struct {
	Category Category
	Status   int
	Title    string
	Message  string
}

// Notification renders the classification as a destructive notice.
func (c Classification) Notification() notifications.Notification {
	return notifications.Destructive(c.Title, c.Message)
}

type statusCoder interface {
	StatusCode() int
}

// Classify maps err to one of the fixed user-facing messages. A nil error
// yields CategoryNone.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryNone}
	}

	var status int
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	switch status {
	case 400:
		return Classification{CategoryInvalidCredentials, status, "Sign in failed", MsgInvalidCredentials}
	case 401:
		return Classification{CategorySessionExpired, status, "Session expired", MsgSessionExpired}
	case 422:
		return Classification{CategoryInvalidInput, status, "Invalid input", MsgInvalidInput}
	case 429:
		return Classification{CategoryRateLimited, status, "Too many attempts", MsgRateLimited}
	}

	if isNetworkError(err) {
		return Classification{CategoryNetwork, status, "Connection problem", MsgNetwork}
	}
	return Classification{CategoryUnexpected, status, "Something went wrong", MsgUnexpectedPrefix + message(err)}
}

func isNetworkError(err error) bool {
	if strings.Contains(err.Error(), "Failed to fetch") {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// message prefers the provider's own message over the wrapped chain.
func message(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
