package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the splitsub API.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeAuth            = "AUTH_ERROR"
	CodeAuthorization   = "AUTHORIZATION_ERROR"
	CodeNotFound        = "NOT_FOUND_ERROR"
	CodeConflict        = "CONFLICT_ERROR"
	CodeRateLimit       = "RATE_LIMIT_ERROR"
	CodeDatabase        = "DATABASE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeSuspiciousInput = "SUSPICIOUS_INPUT_DETECTED"

	CodeLoginRateLimited        = "LOGIN_RATE_LIMIT_EXCEEDED"
	CodeRegistrationRateLimited = "REGISTRATION_RATE_LIMIT_EXCEEDED"
	CodeSensitiveRateLimited    = "SENSITIVE_OPERATION_RATE_LIMIT_EXCEEDED"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	// Details is the raw details payload, empty when the server withheld it.
	Details json.RawMessage

	// RetryAfter is the number of seconds to wait, set on rate limit errors.
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("splitsub: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("splitsub: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsStatus reports whether err is an *APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse builds an *APIError from a response body. Bodies that
// are not an error envelope still produce an error with the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = string(body)
		return apiErr
	}

	apiErr.Code = env.Error.Code
	apiErr.Message = env.Error.Message
	apiErr.Details = env.Error.Details
	apiErr.RetryAfter = env.Error.RetryAfter
	return apiErr
}
