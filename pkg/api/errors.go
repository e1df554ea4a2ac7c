package api

import (
	"errors"
	"fmt"
)

// ErrMissingField is returned when a 2xx Pocket response lacks a field the
// caller needs (such as code or access_token). Wrapped errors name the field.
var ErrMissingField = errors.New("missing field in Pocket response")

// APIError represents a non-2xx Pocket response. Pocket describes failures
// via the X-Error and X-Error-Code response headers rather than the body.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pocket API error (status %d, code %q): %s",
			e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("pocket API error (status %d)", e.StatusCode)
}
