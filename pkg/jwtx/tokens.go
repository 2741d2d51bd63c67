package jwtx

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

// Options configures a TokenService.
type Options struct {
	// AccessSecret and RefreshSecret must both be set and must differ, so a
	// leaked access token can never be replayed as a refresh token.
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL  time.Duration // default DefaultAccessTokenTTL
	RefreshTTL time.Duration // default DefaultRefreshTokenTTL

	// Issuer is stamped into "iss" and enforced on verify when non-empty.
	Issuer string

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Pair is an issued access/refresh credential pair.
type Pair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenService issues and verifies stateless credential pairs. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	access     *hmacKey
	refresh    *hmacKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// NewTokenService validates the key material and returns a ready service.
func NewTokenService(opts Options) (*TokenService, error) {
	if len(opts.AccessSecret) == 0 || len(opts.RefreshSecret) == 0 {
		return nil, fmt.Errorf("%w: both secrets are required", ErrMisconfigured)
	}
	if bytes.Equal(opts.AccessSecret, opts.RefreshSecret) {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	s := &TokenService{
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		issuer:     opts.Issuer,
		now:        now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTokenTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTokenTTL
	}

	s.access = &hmacKey{typ: TypeAccess, secret: opts.AccessSecret, issuer: opts.Issuer, now: now}
	s.refresh = &hmacKey{typ: TypeRefresh, secret: opts.RefreshSecret, issuer: opts.Issuer, now: now}
	return s, nil
}

// Issue creates a fresh access and refresh token for subjectID.
func (s *TokenService) Issue(subjectID string) (Pair, error) {
	if strings.TrimSpace(subjectID) == "" {
		return Pair{}, apperr.Internal("cannot issue tokens without a subject")
	}

	now := s.now()
	accessClaims := newClaims(subjectID, s.issuer, TypeAccess, s.accessTTL, now)
	refreshClaims := newClaims(subjectID, s.issuer, TypeRefresh, s.refreshTTL, now)

	access, err := s.access.Sign(accessClaims)
	if err != nil {
		return Pair{}, apperr.Internal("").Wrap(err)
	}
	refresh, err := s.refresh.Sign(refreshClaims)
	if err != nil {
		return Pair{}, apperr.Internal("").Wrap(err)
	}

	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// VerifyAccess validates an access token. Failures are Auth errors that
// wrap ErrExpired, ErrMalformed or ErrWrongKey.
func (s *TokenService) VerifyAccess(token string) (Claims, error) {
	return s.access.Verify(token)
}

// VerifyRefresh validates a refresh token.
func (s *TokenService) VerifyRefresh(token string) (Claims, error) {
	return s.refresh.Verify(token)
}

// AccessVerifier exposes the access side as a Verifier.
func (s *TokenService) AccessVerifier() Verifier { return s.access }

// RefreshVerifier exposes the refresh side as a Verifier.
func (s *TokenService) RefreshVerifier() Verifier { return s.refresh }

// AccessTTL reports the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }
