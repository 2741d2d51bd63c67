package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/domain"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store/drivers/postgres"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
)

// setupPostgres starts a disposable PostgreSQL container. Skipped when
// Docker is not reachable or with -short.
func setupPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "splitsub",
				"POSTGRES_PASSWORD": "splitsub",
				"POSTGRES_DB":       "splitsub",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://splitsub:splitsub@%s/splitsub?sslmode=disable", endpoint)
	st, err := postgres.NewStore(ctx, dsn, postgres.PoolConfig{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestUsers(t *testing.T) {
	st := setupPostgres(t)
	ctx := context.Background()
	users := st.Users()

	now := time.Now().UTC().Truncate(time.Millisecond)
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        "carol@example.com",
		PasswordHash: "hash",
		Name:         "Carol",
		Role:         authz.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, users.Create(ctx, u))
	require.ErrorIs(t, users.Create(ctx, u), store.ErrAlreadyExists)

	got, err := users.FindByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Nil(t, got.Phone)

	phone := "+61411111111"
	got.Phone = &phone
	got.Role = authz.RoleAdmin
	require.NoError(t, users.Update(ctx, got))

	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, authz.RoleAdmin, got.Role)
	require.Equal(t, phone, *got.Phone)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	list, err := users.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, users.Delete(ctx, u.ID))
	_, err = users.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, users.Delete(ctx, u.ID), store.ErrNotFound)
}
