// Package apperr defines the error kinds surfaced by the coordinator and
// their mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Operations return an *Error wrapping exactly one of these, so
// callers can branch with errors.Is while the message stays human-readable.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrAdmissionRejected   = errors.New("admission rejected")
	ErrPaymentFailure      = errors.New("payment failure")
	ErrMailFailure         = errors.New("mail failure")
	ErrNotificationFailure = errors.New("notification failure")
	ErrConflict            = errors.New("conflict")
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Error carries a kind plus the message shown to the caller. Error() returns
// the bare message so gateway failures propagate unchanged.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// New builds an error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(ErrNotFound, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(ErrInvalidTransition, format, args...)
}

func AdmissionRejected(format string, args ...any) *Error {
	return New(ErrAdmissionRejected, format, args...)
}

func PaymentFailure(format string, args ...any) *Error {
	return New(ErrPaymentFailure, format, args...)
}

func MailFailure(format string, args ...any) *Error {
	return New(ErrMailFailure, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(ErrConflict, format, args...)
}

func BadRequest(format string, args ...any) *Error {
	return New(ErrBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(ErrUnauthorized, format, args...)
}

// HTTPStatus maps an error kind to the response code used by the HTTP layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrAdmissionRejected):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentFailure), errors.Is(err, ErrMailFailure),
		errors.Is(err, ErrNotificationFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
