// Package apperr defines the tagged error type core business logic returns
// instead of raw errors, so HTTP handlers and pipeline loops can map a
// failure to a status code or a retry/DLQ decision without string-matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business error per the error handling design.
type Kind string

const (
	KindValidation Kind = "validation"          // malformed input, 422
	KindNotFound   Kind = "not_found"           // unknown chain/resource, 404
	KindCompliance Kind = "compliance"          // geofence/sanctions, 451/403
	KindUpstream   Kind = "upstream_unavailable" // RPC/Kafka/DB/OLAP transient
	KindFatal      Kind = "fatal"               // unrecoverable at startup
)

// Error is the tagged error result used across the pipeline and API.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// As reports whether err is an *Error, unwrapping through any wrapping.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Validation builds a 422 validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a 404 not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// Geofenced builds a 451 compliance error for blocked countries.
func Geofenced(countryCode string) *Error {
	return &Error{Kind: KindCompliance, Status: http.StatusUnavailableForLegalReasons, Message: "request blocked by operator geofencing policy"}
}

// Sanctioned builds a 403 compliance error for blocked wallets.
func Sanctioned(walletAddress string) *Error {
	return &Error{Kind: KindCompliance, Status: http.StatusForbidden, Message: "wallet blocked by operator sanctions policy"}
}

// Upstream wraps a transient infrastructure failure (RPC/Kafka/DB/OLAP).
func Upstream(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusServiceUnavailable, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Fatal wraps an unrecoverable startup failure; callers should exit non-zero.
func Fatal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// StatusCode returns the HTTP status for err, defaulting to 500 for anything
// that isn't a tagged *Error.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
