package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is the closed set of application error categories. Every kind maps
// to exactly one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
	KindDatabase
	KindExternalService
)

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the default machine-readable code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindAuth:
		return "AUTH_ERROR"
	case KindAuthorization:
		return "AUTHORIZATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND_ERROR"
	case KindConflict:
		return "CONFLICT_ERROR"
	case KindRateLimit:
		return "RATE_LIMIT_ERROR"
	case KindDatabase:
		return "DATABASE_ERROR"
	case KindExternalService:
		return "EXTERNAL_SERVICE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindDatabase:
		return "database"
	case KindExternalService:
		return "external_service"
	default:
		return "internal"
	}
}

// Auth failure causes. These are logged, never sent to the client.
const (
	CauseMissing        = "missing"
	CauseExpired        = "expired"
	CauseMalformed      = "malformed"
	CauseWrongKey       = "wrong-key"
	CauseUnknownSubject = "unknown-subject"
)

// Error is the single application error type. Kind decides the status;
// Code defaults to the kind's code but Validation and RateLimit errors may
// carry a more specific one.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any

	// Safe marks Details as disclosable in production responses.
	Safe bool

	// RetryAfter is set on RateLimit errors.
	RetryAfter time.Duration

	// Cause subtypes Auth failures for logging.
	Cause string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status derived from the kind.
func (e *Error) Status() int { return e.Kind.Status() }

// WithCode overrides the wire code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetails attaches structured context that is shown outside production.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithSafeDetails attaches details that are always shown.
func (e *Error) WithSafeDetails(details any) *Error {
	e.Details = details
	e.Safe = true
	return e
}

// WithCause sets the logging-only subtype.
func (e *Error) WithCause(cause string) *Error {
	e.Cause = cause
	return e
}

// Wrap records the underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func newError(kind Kind, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Kind: kind, Code: kind.Code(), Message: message}
}

func Validation(message string) *Error {
	return newError(KindValidation, message, "Validation failed")
}

func Auth(message string) *Error {
	return newError(KindAuth, message, "Authentication failed")
}

func Authorization(message string) *Error {
	return newError(KindAuthorization, message, "Access denied")
}

func NotFound(message string) *Error {
	return newError(KindNotFound, message, "Resource not found")
}

func Conflict(message string) *Error {
	return newError(KindConflict, message, "Resource conflict")
}

// RateLimit builds a 429 with the given class code and retry hint.
func RateLimit(code, message string, retryAfter time.Duration) *Error {
	e := newError(KindRateLimit, message, "Too many requests")
	if code != "" {
		e.Code = code
	}
	e.RetryAfter = retryAfter
	return e
}

func Database(message string) *Error {
	return newError(KindDatabase, message, "Database operation failed")
}

func ExternalService(message string) *Error {
	return newError(KindExternalService, message, "External service unavailable")
}

func Internal(message string) *Error {
	return newError(KindInternal, message, "Internal server error")
}

// From coerces any error into an *Error. Unknown errors become Internal so
// nothing unclassified crosses the HTTP boundary.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Database("Operation timed out").Wrap(err)
	}

	return Internal("").Wrap(err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
