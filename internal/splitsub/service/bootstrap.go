package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/domain"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/cryptox"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

var ErrBootstrapIncomplete = errors.New("service: bootstrap admin needs both email and password")

// BootstrapService seeds the first SUPERADMIN from configuration, since
// registration only ever creates USER accounts.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// EnsureAdmin creates the account when it does not exist yet. An existing
// account with that email is left untouched.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, ErrBootstrapIncomplete
	}

	_, err := s.Store.Users().FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	now := time.Now().UTC()
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         authz.RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	l.Info("bootstrap admin created", "user_id", u.ID)
	return true, nil
}
