package datasource

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationNotFound is returned when geocoding yields no match
	ErrLocationNotFound = errors.New("location not found")

	// ErrNotConfigured is returned when no usable API key is set
	ErrNotConfigured = errors.New("weather provider API key is not configured")
)

// APIError is a non-200 answer from the provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}
