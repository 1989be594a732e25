package bookingapi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid booking api config")

	// ErrNetworkError is returned when the API could not be reached
	ErrNetworkError = errors.New("network error")

	// ErrNotFound is returned for 404 responses
	ErrNotFound = errors.New("resource not found")

	// ErrRequestFailed is returned for any other non-2xx response
	ErrRequestFailed = errors.New("booking api request failed")

	// ErrInvalidResponse is returned when a response body cannot be decoded
	ErrInvalidResponse = errors.New("invalid booking api response")
)

// APIError carries the status and server-provided detail of a failed call.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("booking api status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("booking api status %d", e.StatusCode)
}

// Unwrap maps the status to a sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	if e.StatusCode == 404 {
		return ErrNotFound
	}
	return ErrRequestFailed
}
