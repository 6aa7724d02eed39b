package authority

import (
	"errors"
	"fmt"
)

// Failure classes of authority calls. Use errors.Is against these.
var (
	ErrUnavailable  = errors.New("authority unavailable")
	ErrUnauthorized = errors.New("authority rejected credentials")
	ErrForbidden    = errors.New("authority denied access")
	ErrNotFound     = errors.New("authority has no such record")
	ErrRejected     = errors.New("authority rejected request")
)

// Error carries the operation, HTTP status and authority message of a failed call.
type Error struct {
	Op      string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("authority %s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the failure class.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap exposes the underlying transport or decode error.
func (e *Error) Unwrap() error { return e.Err }

// MessageOf returns the authority supplied message of err, if any.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// StatusOf returns the HTTP status of err, or 0 when no response was received.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func kindForStatus(status int) error {
	switch {
	case status >= 500:
		return ErrUnavailable
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	default:
		return ErrRejected
	}
}
