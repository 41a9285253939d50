package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoUsername is returned when a decoded token carries no username.
	ErrNoUsername = errors.New("no username")
	// ErrAlreadyHydrated is returned when a session store is hydrated a second time.
	ErrAlreadyHydrated = errors.New("session already hydrated")
	// ErrSubmitInFlight is returned when a form is submitted while a previous
	// submission of the same form is still pending.
	ErrSubmitInFlight = errors.New("submit already in flight")
	// ErrStaleResponse is returned when a response arrives after the user
	// navigated away or logged out.
	ErrStaleResponse = errors.New("stale response")
)

// ValidationError is a client-side rejection of a payload. No request was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServerError is a non-2xx response from the auth service.
// Message holds the service's own error text and may be empty.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth service: status %d", e.StatusCode)
	}

	return fmt.Sprintf("auth service: status %d: %s", e.StatusCode, e.Message)
}

// NetworkError is a transport failure talking to the auth service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SessionDecodeError is returned when a token cannot be turned into a user.
type SessionDecodeError struct {
	Err error
}

func (e *SessionDecodeError) Error() string {
	return fmt.Sprintf("decode session: %v", e.Err)
}

func (e *SessionDecodeError) Unwrap() error {
	return e.Err
}

// IsSessionDecodeError reports whether err is or wraps a SessionDecodeError.
func IsSessionDecodeError(err error) bool {
	var decodeErr *SessionDecodeError

	return errors.As(err, &decodeErr)
}

// UserMessage returns the text shown to the user for err: the validation
// message, else the server's message, else fallback.
func UserMessage(err error, fallback string) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}

	return fallback
}
