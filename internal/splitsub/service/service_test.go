package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/service"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store/drivers/sqlite"
	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/cryptox"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
)

var cheap = cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

type fixture struct {
	store *sqlite.Store
	auth  *service.AuthService
	users *service.UserService
	boot  *service.BootstrapService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := jwtx.NewTokenService(jwtx.Options{
		AccessSecret:  []byte("service-test-access-secret"),
		RefreshSecret: []byte("service-test-refresh-secret"),
	})
	require.NoError(t, err)

	hasher := cryptox.NewHasher("pepper").WithParams(cheap)
	auth, err := service.NewAuthService(st, tokens, hasher)
	require.NoError(t, err)

	return fixture{
		store: st,
		auth:  auth,
		users: &service.UserService{Store: st},
		boot:  &service.BootstrapService{Store: st, Hasher: hasher},
	}
}

func register(t *testing.T, f fixture, email string) service.Session {
	t.Helper()
	s, err := f.auth.Register(context.Background(), service.RegisterInput{
		Email:    email,
		Password: "correct horse",
		Name:     "Alice",
	})
	require.NoError(t, err)
	return s
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperr.Is(err, kind), "got %v", err)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := register(t, f, "  Alice@Example.com ")
	require.Equal(t, "alice@example.com", s.User.Email)
	require.Equal(t, authz.RoleUser, s.User.Role)
	require.NotEqual(t, "correct horse", s.User.PasswordHash)
	require.NotEmpty(t, s.Tokens.AccessToken)
	require.NotEmpty(t, s.Tokens.RefreshToken)

	_, err := f.auth.Register(ctx, service.RegisterInput{Email: "alice@example.com", Password: "another one", Name: "Bob"})
	requireKind(t, err, apperr.KindConflict)
	require.Equal(t, "User with this email already exists", apperr.From(err).Message)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "alice@example.com")

	s, err := f.auth.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", s.User.Email)

	_, wrongPassword := f.auth.Login(ctx, "alice@example.com", "wrong")
	_, unknownEmail := f.auth.Login(ctx, "nobody@example.com", "correct horse")

	requireKind(t, wrongPassword, apperr.KindAuth)
	requireKind(t, unknownEmail, apperr.KindAuth)
	require.Equal(t, apperr.From(wrongPassword).Message, apperr.From(unknownEmail).Message,
		"both failures must look the same")
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := register(t, f, "alice@example.com")

	pair, err := f.auth.Refresh(ctx, s.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	_, err = f.auth.Refresh(ctx, s.Tokens.AccessToken)
	requireKind(t, err, apperr.KindAuth)

	require.NoError(t, f.store.Users().Delete(ctx, s.User.ID))
	_, err = f.auth.Refresh(ctx, s.Tokens.RefreshToken)
	requireKind(t, err, apperr.KindAuth)
	require.Equal(t, apperr.CauseUnknownSubject, apperr.From(err).Cause)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := register(t, f, "alice@example.com")

	err := f.auth.ChangePassword(ctx, s.User.ID, "wrong", "brand new password")
	requireKind(t, err, apperr.KindAuth)

	err = f.auth.ChangePassword(ctx, s.User.ID, "correct horse", "correct horse")
	requireKind(t, err, apperr.KindValidation)

	require.NoError(t, f.auth.ChangePassword(ctx, s.User.ID, "correct horse", "brand new password"))

	_, err = f.auth.Login(ctx, "alice@example.com", "correct horse")
	requireKind(t, err, apperr.KindAuth)
	_, err = f.auth.Login(ctx, "alice@example.com", "brand new password")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := register(t, f, "alice@example.com")

	name, phone := "  Alice Smith ", "0412345678"
	u, err := f.auth.UpdateProfile(ctx, s.User.ID, service.ProfileUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "Alice Smith", u.Name)
	require.Equal(t, &phone, u.Phone)

	empty := ""
	u, err = f.auth.UpdateProfile(ctx, s.User.ID, service.ProfileUpdate{Phone: &empty})
	require.NoError(t, err)
	require.Nil(t, u.Phone)
	require.Equal(t, "Alice Smith", u.Name, "nil fields are left alone")

	got, err := f.auth.Profile(ctx, s.User.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice Smith", got.Name)

	_, err = f.auth.Profile(ctx, "00000000-0000-0000-0000-000000000000")
	requireKind(t, err, apperr.KindNotFound)
}

func TestUserService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := register(t, f, "a@example.com")
	register(t, f, "b@example.com")
	register(t, f, "c@example.com")

	t.Run("list pages", func(t *testing.T) {
		users, total, err := f.users.List(ctx, 0, 2)
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, users, 2)

		users, _, err = f.users.List(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, users, 1)
	})

	t.Run("find identity", func(t *testing.T) {
		id, ok, err := f.users.FindIdentity(ctx, a.User.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, authz.Identity{UserID: a.User.ID, Email: "a@example.com", Role: authz.RoleUser}, id)

		_, ok, err = f.users.FindIdentity(ctx, "missing")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		admin := authz.Identity{UserID: "admin-id", Role: authz.RoleAdmin}

		err := f.users.Delete(ctx, authz.Identity{UserID: a.User.ID, Role: authz.RoleAdmin}, a.User.ID)
		requireKind(t, err, apperr.KindConflict)
		require.Equal(t, "Cannot delete your own account", apperr.From(err).Message)

		require.NoError(t, f.users.Delete(ctx, admin, a.User.ID))
		requireKind(t, f.users.Delete(ctx, admin, a.User.ID), apperr.KindNotFound)

		_, err = f.users.Get(ctx, a.User.ID)
		requireKind(t, err, apperr.KindNotFound)
	})
}

func TestStoreFailureIsDatabaseError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.users.Get(context.Background(), "anything")
	requireKind(t, err, apperr.KindDatabase)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.boot.EnsureAdmin(ctx, "Root@Example.com", "bootstrap-password", "")
	require.NoError(t, err)
	require.True(t, created)

	created, err = f.boot.EnsureAdmin(ctx, "root@example.com", "other", "")
	require.NoError(t, err)
	require.False(t, created, "second run is a no-op")

	s, err := f.auth.Login(ctx, "root@example.com", "bootstrap-password")
	require.NoError(t, err)
	require.Equal(t, authz.RoleSuperAdmin, s.User.Role)

	_, err = f.boot.EnsureAdmin(ctx, "root@example.com", "", "")
	require.ErrorIs(t, err, service.ErrBootstrapIncomplete)
}
