package service

import (
	"errors"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
	msgEmailTaken         = "User with this email already exists"
)

// storeErr maps store sentinels onto application errors. Anything else is
// a database failure, including timeouts.
func storeErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(msgUserNotFound).Wrap(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return apperr.Conflict(msgEmailTaken).Wrap(err)
	default:
		return apperr.Database("Failed to " + op).Wrap(err)
	}
}
