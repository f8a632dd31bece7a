package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoMessages is returned when a request has no messages.
	ErrNoMessages = errors.New("llm: request has no messages")

	// ErrStreamClosed is returned when receiving from a closed stream.
	ErrStreamClosed = errors.New("llm: stream closed")
)

// APIError represents an error response from the chat API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Type is the API error type, if provided.
	Type string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm: API error %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm: API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}
