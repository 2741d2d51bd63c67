package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/domain"
	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
)

// UserView is the public shape of a user. It never carries the hash.
type UserView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	Role      authz.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func newUserView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type sessionResponse struct {
	User   UserView  `json:"user"`
	Tokens jwtx.Pair `json:"tokens"`
}

type userResponse struct {
	User UserView `json:"user"`
}

type tokensResponse struct {
	Tokens jwtx.Pair `json:"tokens"`
}

type deletedResponse struct {
	DeletedID string    `json:"deletedId"`
	DeletedAt time.Time `json:"deletedAt"`
}

// caller returns the identity resolved by the authentication stage.
func caller(r *http.Request) (authz.Identity, error) {
	id, ok := authz.FromContext(r.Context())
	if !ok {
		return authz.Identity{}, apperr.Auth("Authentication required").WithCause(apperr.CauseMissing)
	}
	return id, nil
}
