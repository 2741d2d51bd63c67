package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
)

// RequireRoles admits callers whose role includes any of roles. It must
// run after Authenticate; a request without an identity is a 401.
func RequireRoles(roles ...authz.Role) Stage {
	return StageFunc(func(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
		id, ok := authz.FromContext(r.Context())
		if !ok {
			return nil, apperr.Auth("Authentication required").WithCause(apperr.CauseMissing)
		}
		if err := authz.Authorize(id, roles...); err != nil {
			return nil, err
		}
		return r, nil
	})
}
