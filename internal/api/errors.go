package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. Every dispatcher operation maps storage and
// validation failures to exactly one kind, and each kind maps to exactly one
// status code.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidationFailed
	KindMalformedPayload
	KindNotFound
	KindPermissionDenied
	KindConflict
	KindBackendUnavailable
)

// Error is a typed failure carrying the user-facing message for the client
// and, optionally, the underlying cause for server-side logs. The cause is
// never echoed to clients.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidationFailed, KindMalformedPayload:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ValidationFailed reports a request that violates a policy or structural
// constraint.
func ValidationFailed(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// MalformedPayload reports a body that could not be parsed at all.
func MalformedPayload(cause error) *Error {
	return &Error{
		Kind:    KindMalformedPayload,
		Message: "Request body could not be parsed.",
		cause:   cause,
	}
}

// NotFound reports an absent resource, e.g. NotFound("Queue", "orders").
func NotFound(resource, name string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s does not exist.", resource, name)}
}

// PermissionDenied reports an operation the caller may not perform.
func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

// Conflict reports a write the backend refused.
func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, cause: cause}
}

// BackendUnavailable reports a storage operation that could not be carried
// out. The verb is past tense, e.g. BackendUnavailable("Messages",
// "enqueued", err).
func BackendUnavailable(resource, verb string, cause error) *Error {
	return &Error{
		Kind:    KindBackendUnavailable,
		Message: fmt.Sprintf("%s could not be %s.", resource, verb),
		cause:   cause,
	}
}

// Unexpected wraps a fault no operation anticipated. Clients see only the
// generic message; the cause goes to the server log.
func Unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, Message: "Unexpected error.", cause: cause}
}

// AsError extracts a typed *Error from err, or wraps it as Unexpected.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Unexpected(err)
}
