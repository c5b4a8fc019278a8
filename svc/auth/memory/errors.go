package memory

import (
	"net/http"
	"strconv"

	"github.com/dmitrymomot/storytime/svc/auth"
)

// Provider failures, shaped like the hosted service's responses.
var (
	errInvalidCredentials = auth.NewProviderError(http.StatusBadRequest, "Invalid login credentials")
	errEmailNotConfirmed  = &auth.ProviderError{Status: http.StatusBadRequest, Code: "email_not_confirmed", Message: "Email not confirmed"}
	errUserExists         = &auth.ProviderError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	errSessionMissing     = &auth.ProviderError{Status: http.StatusUnauthorized, Code: "session_not_found", Message: "Auth session missing!"}
	errRateLimited        = &auth.ProviderError{Status: http.StatusTooManyRequests, Code: "over_request_rate_limit", Message: "Request rate limit reached"}
)

func weakPassword(min int) *auth.ProviderError {
	return &auth.ProviderError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "weak_password",
		Message: "Password should be at least " + strconv.Itoa(min) + " characters",
	}
}

func invalidEmail() *auth.ProviderError {
	return &auth.ProviderError{Status: http.StatusUnprocessableEntity, Code: "validation_failed", Err: auth.ErrInvalidEmail}
}

func unsupportedOAuth(provider string) *auth.ProviderError {
	return &auth.ProviderError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "provider_disabled",
		Message: "Unsupported provider: " + provider,
		Err:     auth.ErrUnsupportedOAuth,
	}
}
