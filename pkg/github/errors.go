package github

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrProviderAPI is wrapped by every non-2xx provider response.
var ErrProviderAPI = errors.New("provider api error")

// APIError is a non-2xx response from the provider API.
type APIError struct {
	Method             string
	Path               string
	StatusCode         int
	Message            string
	RateLimitRemaining string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrProviderAPI
}

// IsRateLimited reports a primary or secondary rate limit response.
func (e *APIError) IsRateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode == http.StatusForbidden && e.RateLimitRemaining == "0"
}

// IsAuth reports a credential or permission failure.
func (e *APIError) IsAuth() bool {
	if e.StatusCode == http.StatusUnauthorized {
		return true
	}
	return e.StatusCode == http.StatusForbidden && !e.IsRateLimited()
}

// IsNotFound reports a 404, which the API also returns for repos the token cannot see.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
