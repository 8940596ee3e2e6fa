package api

import (
	"errors"
	"fmt"
)

// Kind classifies an API error
type Kind string

const (
	// KindStatus means the backend answered with a non-success HTTP status
	KindStatus Kind = "status"

	// KindMalformed means the response body was missing required fields
	KindMalformed Kind = "malformed"

	// KindTransport means the request never got a response
	KindTransport Kind = "transport"

	// KindRejected means the backend answered but reported success=false
	KindRejected Kind = "rejected"

	// KindUnavailable means the circuit breaker refused the call
	KindUnavailable Kind = "unavailable"
)

// Error is returned by every Client method
type Error struct {
	Kind     Kind
	Endpoint string
	Status   int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an API error of the given kind
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
