package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthenticationFailed is returned (wrapped) whenever the identity
// provider refuses to issue a bearer token.
var ErrAuthenticationFailed = errors.New("authentication failed")

// AuthError carries the identity provider's raw response. Status is kept
// for callers; the message shows only the body.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Failed to get access token: %s", e.Body)
}

func (e *AuthError) Unwrap() error { return ErrAuthenticationFailed }

// GenerationError is a non-200 answer from the generation endpoint.
type GenerationError struct {
	Status int
	Body   string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("Error: %d - %s", e.Status, e.Body)
}

// Transient reports whether the status is worth another attempt.
func (e *GenerationError) Transient() bool {
	switch e.Status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ValidationError rejects a request before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
