// Package apperr defines the error kinds a request can fail with and the HTTP
// status each one maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden access")
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("service unavailable")
	ErrTooLarge        = errors.New("request entity too large")
)

// ServerErrorMessage is the only message a client sees for unclassified failures.
const ServerErrorMessage = "Server error"

// BadRequest wraps ErrBadRequest with a client-facing message.
func BadRequest(msg string) error {
	return &Error{Kind: ErrBadRequest, Message: msg}
}

// Unavailable wraps ErrUnavailable with a client-facing message.
func Unavailable(msg string) error {
	return &Error{Kind: ErrUnavailable, Message: msg}
}

// TooLarge wraps ErrTooLarge with a client-facing message.
func TooLarge(msg string) error {
	return &Error{Kind: ErrTooLarge, Message: msg}
}

// Error carries a kind plus the message shown to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%v: %s", e.Kind, e.Message) }

func (e *Error) Unwrap() error { return e.Kind }

// Status returns the HTTP status for err and the message safe to send back.
func Status(err error) (int, string) {
	var appErr *Error
	msg := ""
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, orDefault(msg, ErrUnauthenticated.Error())
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, orDefault(msg, ErrForbidden.Error())
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, orDefault(msg, ErrBadRequest.Error())
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, orDefault(msg, ErrNotFound.Error())
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, orDefault(msg, ErrTooLarge.Error())
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, orDefault(msg, ErrUnavailable.Error())
	default:
		return http.StatusInternalServerError, ServerErrorMessage
	}
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
