package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// DefaultIdentityLookupTimeout bounds the store lookup after a token has
// been verified.
const DefaultIdentityLookupTimeout = 2 * time.Second

// IdentityStore resolves a verified subject to its current identity. A
// subject that no longer exists returns found=false with a nil error.
type IdentityStore interface {
	FindIdentity(ctx context.Context, id string) (identity authz.Identity, found bool, err error)
}

// AuthenticateStage verifies the bearer token and attaches the caller's
// identity to the request context.
type AuthenticateStage struct {
	verifier jwtx.Verifier
	store    IdentityStore
	optional bool
	timeout  time.Duration
}

type AuthOption func(*AuthenticateStage)

// WithLookupTimeout overrides DefaultIdentityLookupTimeout.
func WithLookupTimeout(d time.Duration) AuthOption {
	return func(s *AuthenticateStage) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Authenticate requires a valid access token.
func Authenticate(v jwtx.Verifier, store IdentityStore, opts ...AuthOption) *AuthenticateStage {
	s := &AuthenticateStage{verifier: v, store: store, timeout: DefaultIdentityLookupTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OptionalAuthenticate lets anonymous requests through. A token that is
// present must still be valid.
func OptionalAuthenticate(v jwtx.Verifier, store IdentityStore, opts ...AuthOption) *AuthenticateStage {
	s := Authenticate(v, store, opts...)
	s.optional = true
	return s
}

func (s *AuthenticateStage) Run(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Anything other than exactly "Bearer <token>" counts as no token.
	token, ok := jwtx.ExtractFromHeader(r.Header.Get("Authorization"))
	if !ok {
		if s.optional {
			return r, nil
		}
		return nil, apperr.Auth("Access token required").WithCause(apperr.CauseMissing)
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		log.Debug("access token rejected", "err", err)
		return nil, err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	identity, found, err := s.store.FindIdentity(lookupCtx, claims.SubjectID())
	if err != nil {
		return nil, apperr.Database("Unable to verify credentials").Wrap(err)
	}
	if !found {
		return nil, apperr.Auth(jwtx.InvalidTokenMessage).WithCause(apperr.CauseUnknownSubject)
	}

	ctx = authz.WithIdentity(ctx, identity)
	ctx = slogx.With(ctx, "user_id", identity.UserID)
	return r.WithContext(ctx), nil
}
