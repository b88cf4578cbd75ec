package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure the vault can produce. Handlers map
// kinds to HTTP status codes and callers branch on kinds, never on message
// text.
type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "INVALID_INPUT"
	KindUnauthorized  ErrorKind = "UNAUTHENTICATED"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindAlreadyExists ErrorKind = "ALREADY_EXISTS"
	KindRateLimited   ErrorKind = "RATE_LIMITED"
	KindUpstreamFail  ErrorKind = "UPSTREAM_FAIL"
	KindIntegrityFail ErrorKind = "INTEGRITY_FAIL"
	KindBackendFail   ErrorKind = "BACKEND_FAIL"
)

// VaultError is the single error type crossing package boundaries. Message
// is safe to return to callers; wrapped errors are for logs only and may
// carry backend detail, never secret material.
type VaultError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *VaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to the response code used by the HTTP
// layer.
func (e *VaultError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamFail:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError builds a VaultError without a cause.
func NewError(kind ErrorKind, message string) *VaultError {
	return &VaultError{Kind: kind, Message: message}
}

// WrapError builds a VaultError around an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *VaultError {
	return &VaultError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from any error in the chain, or "" when the
// error is not a VaultError.
func KindOf(err error) ErrorKind {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the caller-safe message for err. Non-VaultError values
// collapse to a generic message so internal detail never leaks.
func MessageOf(err error) string {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return "internal error"
}

// HTTPStatusOf maps any error to a response code, defaulting to 500.
func HTTPStatusOf(err error) int {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.HTTPStatus()
	}
	return http.StatusInternalServerError
}
