package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

// InvalidTokenMessage is the only message a client ever sees for a bad
// credential, whatever the underlying cause.
const InvalidTokenMessage = "Invalid or expired token"

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrWrongKey      = errors.New("jwtx: token not signed with the expected key")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrMisconfigured = errors.New("jwtx: signing keys misconfigured")
)

// Verifier validates a token of one type and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// classify maps golang-jwt parse errors onto our three causes and wraps
// them in a uniform Auth error.
func classify(err error) error {
	var (
		sentinel error
		cause    string
	)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		sentinel, cause = ErrExpired, apperr.CauseExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, ErrWrongKey):
		sentinel, cause = ErrWrongKey, apperr.CauseWrongKey
	default:
		sentinel, cause = ErrMalformed, apperr.CauseMalformed
	}

	return apperr.Auth(InvalidTokenMessage).
		WithCause(cause).
		Wrap(errors.Join(sentinel, err))
}
