// Package authz holds the caller identity and the role and ownership rules
// applied to it.
package authz

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

// Role is one of a small closed set with SUPERADMIN ⊇ ADMIN ⊇ USER.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.rank() > 0 }

// Includes reports whether r carries at least the privileges of other.
func (r Role) Includes(other Role) bool {
	return r.Valid() && other.Valid() && r.rank() >= other.rank()
}

// ParseRole normalizes a stored role string. Unknown or empty values fall
// back to USER.
func ParseRole(s string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return RoleUser
	}
	return r
}

// Identity is the resolved caller attached to an authenticated request.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

type ctxKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity for the request, if one was resolved.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Authorize succeeds when the identity's role includes any of required.
// An empty required list admits every authenticated caller.
func Authorize(id Identity, required ...Role) error {
	if len(required) == 0 {
		return nil
	}
	for _, want := range required {
		if id.Role.Includes(want) {
			return nil
		}
	}
	return apperr.Authorization("Insufficient permissions")
}

// CanActOn implements the self-or-elevated rule for a single resource. A
// caller who is neither the owner nor elevated gets NotFound rather than
// Forbidden so the resource's existence is not confirmed.
func CanActOn(id Identity, ownerID string, elevated ...Role) error {
	if id.UserID != "" && id.UserID == ownerID {
		return nil
	}
	for _, want := range elevated {
		if id.Role.Includes(want) {
			return nil
		}
	}
	return apperr.NotFound("User not found")
}
