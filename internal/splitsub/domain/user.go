package domain

import (
	"time"

	"github.com/aussiebroadwan/splitsub/pkg/authz"
)

type User struct {
	ID           string // uuid v4
	Email        string // lower-cased, unique
	PasswordHash string // argon2id PHC string
	Name         string
	Phone        *string
	Role         authz.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the subset of the user the request pipeline carries around.
func (u User) Identity() authz.Identity {
	return authz.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}
