package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/domain"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/cryptox"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// Session is what a successful register or login returns.
type Session struct {
	User   domain.User
	Tokens jwtx.Pair
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

type ProfileUpdate struct {
	Name  *string
	Phone *string
}

type AuthService struct {
	Store  store.Store
	Tokens *jwtx.TokenService
	Hasher *cryptox.Hasher
	Now    func() time.Time

	// dummyHash is verified against when the email is unknown so both
	// login failure paths cost one Argon2 derivation.
	dummyHash string
}

func NewAuthService(st store.Store, tokens *jwtx.TokenService, hasher *cryptox.Hasher) (*AuthService, error) {
	dummy, err := hasher.Hash("splitsub-timing-equaliser")
	if err != nil {
		return nil, err
	}
	return &AuthService{Store: st, Tokens: tokens, Hasher: hasher, Now: time.Now, dummyHash: dummy}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	l := slogx.FromContext(ctx)
	email := normalizeEmail(in.Email)

	if _, err := s.Store.Users().FindByEmail(ctx, email); err == nil {
		return Session{}, apperr.Conflict(msgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, storeErr(err, "register user")
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return Session{}, apperr.Internal("").Wrap(err)
	}

	now := s.now()
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        in.Phone,
		Role:         authz.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().Create(ctx, u); err != nil {
		return Session{}, storeErr(err, "register user")
	}

	pair, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}

	l.Info("user registered", "user_id", u.ID)
	return Session{User: u, Tokens: pair}, nil
}

// Login checks the credentials. Unknown email and wrong password fail
// identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().FindByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = s.Hasher.Verify(password, s.dummyHash)
		l.Info("login failed", "reason", "unknown_email")
		return Session{}, apperr.Auth(msgInvalidCredentials)
	case err != nil:
		return Session{}, storeErr(err, "log in")
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			l.Error("stored password hash unreadable", "user_id", u.ID, "err", err)
		}
		l.Info("login failed", "reason", "bad_password", "user_id", u.ID)
		return Session{}, apperr.Auth(msgInvalidCredentials)
	}

	pair, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}

	l.Info("user logged in", "user_id", u.ID)
	return Session{User: u, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The subject must still
// exist. Old tokens stay valid until they expire.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (jwtx.Pair, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return jwtx.Pair{}, err
	}

	if _, err := s.Store.Users().FindByID(ctx, claims.SubjectID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Pair{}, apperr.Auth(jwtx.InvalidTokenMessage).WithCause(apperr.CauseUnknownSubject)
		}
		return jwtx.Pair{}, storeErr(err, "refresh token")
	}

	return s.Tokens.Issue(claims.SubjectID())
}

// Profile returns the caller's own record.
func (s *AuthService) Profile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, storeErr(err, "load profile")
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of p.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (domain.User, error) {
	return updateUser(ctx, s.Store, userID, p, s.now())
}

// ChangePassword requires the current password and a different new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return storeErr(err, "change password")
	}

	if err := s.Hasher.Verify(current, u.PasswordHash); err != nil {
		return apperr.Auth("Current password is incorrect")
	}
	if current == next {
		return apperr.Validation("New password must be different from current password")
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return apperr.Internal("").Wrap(err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()

	if err := s.Store.Users().Update(ctx, u); err != nil {
		return storeErr(err, "change password")
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", u.ID)
	return nil
}

func updateUser(ctx context.Context, st store.Store, userID string, p ProfileUpdate, now time.Time) (domain.User, error) {
	u, err := st.Users().FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, storeErr(err, "update user")
	}

	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		phone := strings.TrimSpace(*p.Phone)
		if phone == "" {
			u.Phone = nil
		} else {
			u.Phone = &phone
		}
	}
	u.UpdatedAt = now

	if err := st.Users().Update(ctx, u); err != nil {
		return domain.User{}, storeErr(err, "update user")
	}
	return u, nil
}
