package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/domain"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

type UserService struct {
	Store store.Store
}

// FindIdentity resolves a token subject for the authentication stage. A
// missing user is reported as not found, never as an error.
func (s *UserService) FindIdentity(ctx context.Context, id string) (authz.Identity, bool, error) {
	u, err := s.Store.Users().FindByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return authz.Identity{}, false, nil
	case err != nil:
		return authz.Identity{}, false, err
	}
	return u.Identity(), true, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().FindByID(ctx, id)
	if err != nil {
		return domain.User{}, storeErr(err, "retrieve user")
	}
	return u, nil
}

// List returns one page and the total row count.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]domain.User, int, error) {
	users, err := s.Store.Users().List(ctx, offset, limit)
	if err != nil {
		return nil, 0, storeErr(err, "retrieve users")
	}
	total, err := s.Store.Users().Count(ctx)
	if err != nil {
		return nil, 0, storeErr(err, "retrieve users")
	}
	return users, total, nil
}

func (s *UserService) Update(ctx context.Context, id string, p ProfileUpdate) (domain.User, error) {
	return updateUser(ctx, s.Store, id, p, time.Now().UTC())
}

// Delete removes id. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor authz.Identity, id string) error {
	if actor.UserID == id {
		return apperr.Conflict("Cannot delete your own account")
	}
	if err := s.Store.Users().Delete(ctx, id); err != nil {
		return storeErr(err, "delete user")
	}
	slogx.FromContext(ctx).Info("user deleted", "user_id", id, "deleted_by", actor.UserID)
	return nil
}
