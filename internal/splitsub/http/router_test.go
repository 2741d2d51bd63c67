package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	splitsubhttp "github.com/aussiebroadwan/splitsub/internal/splitsub/http"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/service"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store/drivers/sqlite"
	"github.com/aussiebroadwan/splitsub/pkg/authsdk"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/cryptox"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
	"github.com/aussiebroadwan/splitsub/pkg/ratelimit"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

type server struct {
	t      *testing.T
	store  *sqlite.Store
	tokens *jwtx.TokenService
	router *splitsubhttp.Router
	now    time.Time
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{t: t, now: time.Now().UTC()}

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	s.store = st

	s.tokens, err = jwtx.NewTokenService(jwtx.Options{
		AccessSecret:  []byte("router-test-access-secret"),
		RefreshSecret: []byte("router-test-refresh-secret"),
		Now:           func() time.Time { return s.now },
	})
	require.NoError(t, err)

	hasher := cryptox.NewHasher("").WithParams(cryptox.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16,
	})
	auth, err := service.NewAuthService(st, s.tokens, hasher)
	require.NoError(t, err)

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultPolicies(false))
	s.router = splitsubhttp.NewRouter(splitsubhttp.Options{BuildVersion: "test"}, st, s.tokens, limiter, slogx.Discard())
	s.router.AuthService = auth
	s.router.UserService = &service.UserService{Store: st}
	s.router.ApplyRoutes()
	return s
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

type session struct {
	User   splitsubhttp.UserView `json:"user"`
	Tokens jwtx.Pair             `json:"tokens"`
}

func (s *server) do(method, path, token, body string) (int, envelope, string) {
	s.t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env, w.Body.String()
}

func (s *server) register(email string) session {
	s.t.Helper()
	status, env, raw := s.do(http.MethodPost, "/v1/auth/register", "",
		`{"email":"`+email+`","password":"correct horse","name":"Test User"}`)
	require.Equal(s.t, http.StatusCreated, status, raw)

	var sess session
	require.NoError(s.t, json.Unmarshal(env.Data, &sess))
	return sess
}

func (s *server) promote(id string, role authz.Role) {
	s.t.Helper()
	ctx := context.Background()
	u, err := s.store.Users().FindByID(ctx, id)
	require.NoError(s.t, err)
	u.Role = role
	require.NoError(s.t, s.store.Users().Update(ctx, u))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	sess := s.register("Alice@Example.com")
	require.Equal(t, "alice@example.com", sess.User.Email)
	require.Equal(t, authz.RoleUser, sess.User.Role)
	require.NotEmpty(t, sess.Tokens.AccessToken)

	status, env, raw := s.do(http.MethodPost, "/v1/auth/register", "",
		`{"email":"alice@example.com","password":"correct horse","name":"Again"}`)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "User with this email already exists", env.Error.Message)
	require.NotContains(t, raw, "passwordHash")

	status, env, raw = s.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, status, raw)
	require.Equal(t, "Login successful", env.Message)
	require.NotContains(t, raw, "argon2id")

	status, env, _ = s.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid credentials", env.Error.Message)
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)

	status, env, _ := s.do(http.MethodPost, "/v1/auth/register", "",
		`{"email":"not-an-email","password":"short","name":"A"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	details, ok := env.Error.Details.([]any)
	require.True(t, ok)
	var fields []string
	for _, d := range details {
		fields = append(fields, d.(map[string]any)["field"].(string))
	}
	require.Equal(t, []string{"email", "password", "name"}, fields)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newServer(t)
	sess := s.register("alice@example.com")

	status, env, raw := s.do(http.MethodPost, "/v1/auth/refresh", "",
		`{"refreshToken":"`+sess.Tokens.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, status, raw)
	require.Equal(t, "Token refreshed successfully", env.Message)

	status, _, _ = s.do(http.MethodPost, "/v1/auth/refresh", "",
		`{"refreshToken":"`+sess.Tokens.AccessToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, status, "an access token cannot refresh")

	status, env, _ = s.do(http.MethodPost, "/v1/auth/logout", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Logout successful", env.Message)

	status, _, _ = s.do(http.MethodPost, "/v1/auth/logout", sess.Tokens.AccessToken, "")
	require.Equal(t, http.StatusOK, status)
}

func TestProfileRequiresToken(t *testing.T) {
	s := newServer(t)
	sess := s.register("alice@example.com")

	status, env, _ := s.do(http.MethodGet, "/v1/auth/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Access token required", env.Error.Message)

	status, env, _ = s.do(http.MethodGet, "/v1/auth/profile", sess.Tokens.AccessToken, "")
	require.Equal(t, http.StatusOK, status)
	var got struct{ User splitsubhttp.UserView }
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, sess.User.ID, got.User.ID)

	status, env, raw := s.do(http.MethodPut, "/v1/auth/profile", sess.Tokens.AccessToken, `{"name":"Alice Smith"}`)
	require.Equal(t, http.StatusOK, status, raw)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, "Alice Smith", got.User.Name)
}

func TestExpiredTokenScenario(t *testing.T) {
	s := newServer(t)
	sess := s.register("alice@example.com")
	body := `{"currentPassword":"correct horse","newPassword":"battery staple"}`

	s.now = s.now.Add(s.tokens.AccessTTL() + time.Second)

	status, env, _ := s.do(http.MethodPost, "/v1/auth/change-password", sess.Tokens.AccessToken, body)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "AUTH_ERROR", env.Error.Code)
	require.Equal(t, jwtx.InvalidTokenMessage, env.Error.Message)

	status, env, _ = s.do(http.MethodPost, "/v1/auth/change-password", "", body)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "AUTH_ERROR", env.Error.Code)

	// Neither request reached the handler, so the old password still works.
	status, _, _ = s.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, status)
}

func TestChangePassword(t *testing.T) {
	s := newServer(t)
	sess := s.register("alice@example.com")

	status, env, _ := s.do(http.MethodPost, "/v1/auth/change-password", sess.Tokens.AccessToken,
		`{"currentPassword":"correct horse","newPassword":"correct horse"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, _, _ = s.do(http.MethodPost, "/v1/auth/change-password", sess.Tokens.AccessToken,
		`{"currentPassword":"wrong password","newPassword":"battery staple"}`)
	require.Equal(t, http.StatusUnauthorized, status)

	status, env, _ = s.do(http.MethodPost, "/v1/auth/change-password", sess.Tokens.AccessToken,
		`{"currentPassword":"correct horse","newPassword":"battery staple"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Password changed successfully", env.Message)

	status, _, _ = s.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"battery staple"}`)
	require.Equal(t, http.StatusOK, status)
}

func TestUserOwnership(t *testing.T) {
	s := newServer(t)
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")
	admin := s.register("admin@example.com")
	s.promote(admin.User.ID, authz.RoleAdmin)

	path := "/v1/users/" + alice.User.ID

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"owner", alice.Tokens.AccessToken, http.StatusOK},
		{"other user", bob.Tokens.AccessToken, http.StatusNotFound},
		{"admin", admin.Tokens.AccessToken, http.StatusOK},
		{"anonymous", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, _ := s.do(http.MethodGet, path, tt.token, "")
			require.Equal(t, tt.status, status)
		})
	}

	t.Run("non-owner update is hidden", func(t *testing.T) {
		status, env, _ := s.do(http.MethodPut, path, bob.Tokens.AccessToken, `{"name":"Mallory"}`)
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "User not found", env.Error.Message)
	})

	t.Run("owner update", func(t *testing.T) {
		status, env, raw := s.do(http.MethodPut, path, alice.Tokens.AccessToken, `{"name":"Alice B"}`)
		require.Equal(t, http.StatusOK, status, raw)
		var got struct{ User splitsubhttp.UserView }
		require.NoError(t, json.Unmarshal(env.Data, &got))
		require.Equal(t, "Alice B", got.User.Name)
	})

	t.Run("malformed id", func(t *testing.T) {
		status, env, _ := s.do(http.MethodGet, "/v1/users/not-a-uuid", alice.Tokens.AccessToken, "")
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("me", func(t *testing.T) {
		status, env, _ := s.do(http.MethodGet, "/v1/users/me", bob.Tokens.AccessToken, "")
		require.Equal(t, http.StatusOK, status)
		var got struct{ User splitsubhttp.UserView }
		require.NoError(t, json.Unmarshal(env.Data, &got))
		require.Equal(t, bob.User.ID, got.User.ID)
	})
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	bob := s.register("bob@example.com")
	admin := s.register("admin@example.com")
	s.promote(admin.User.ID, authz.RoleAdmin)

	t.Run("role gate", func(t *testing.T) {
		status, _, _ := s.do(http.MethodGet, "/v1/auth/admin", bob.Tokens.AccessToken, "")
		require.Equal(t, http.StatusForbidden, status)

		status, _, _ = s.do(http.MethodGet, "/v1/auth/admin", admin.Tokens.AccessToken, "")
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("list", func(t *testing.T) {
		status, env, raw := s.do(http.MethodGet, "/v1/users?page=1&limit=1", admin.Tokens.AccessToken, "")
		require.Equal(t, http.StatusOK, status, raw)

		var page struct {
			Items      []splitsubhttp.UserView `json:"items"`
			Pagination struct {
				Total      int `json:"total"`
				TotalPages int `json:"totalPages"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		require.Len(t, page.Items, 1)
		require.Equal(t, 2, page.Pagination.Total)
		require.Equal(t, 2, page.Pagination.TotalPages)

		status, _, _ = s.do(http.MethodGet, "/v1/users?limit=500", admin.Tokens.AccessToken, "")
		require.Equal(t, http.StatusBadRequest, status)

		status, _, _ = s.do(http.MethodGet, "/v1/users", bob.Tokens.AccessToken, "")
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("self delete", func(t *testing.T) {
		status, env, _ := s.do(http.MethodDelete, "/v1/users/"+admin.User.ID, admin.Tokens.AccessToken, "")
		require.Equal(t, http.StatusConflict, status)
		require.Equal(t, "Cannot delete your own account", env.Error.Message)
	})

	t.Run("user cannot delete", func(t *testing.T) {
		status, _, _ := s.do(http.MethodDelete, "/v1/users/"+admin.User.ID, bob.Tokens.AccessToken, "")
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("delete", func(t *testing.T) {
		status, _, _ := s.do(http.MethodDelete, "/v1/users/"+bob.User.ID, admin.Tokens.AccessToken, "")
		require.Equal(t, http.StatusOK, status)

		status, _, _ = s.do(http.MethodGet, "/v1/users/"+bob.User.ID, admin.Tokens.AccessToken, "")
		require.Equal(t, http.StatusNotFound, status)

		status, _, _ = s.do(http.MethodGet, "/v1/auth/profile", bob.Tokens.AccessToken, "")
		require.Equal(t, http.StatusUnauthorized, status, "tokens of deleted users stop working")
	})
}

func TestSecurityEnvelope(t *testing.T) {
	s := newServer(t)

	status, env, _ := s.do(http.MethodPost, "/v1/auth/login", "",
		`{"email":"<script>alert(1)</script>@x.io","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "SUSPICIOUS_INPUT_DETECTED", env.Error.Code)

	// A rejected registration must not create the account.
	status, env, _ = s.do(http.MethodPost, "/v1/auth/register", "",
		`{"email":"mallory@example.com","password":"correct horse","name":"<script>alert(1)</script>"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "SUSPICIOUS_INPUT_DETECTED", env.Error.Code)
	_, err := s.store.Users().FindByEmail(context.Background(), "mallory@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("email=a"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var hr authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hr))
	require.Equal(t, "ok", hr.Status)
	require.Equal(t, "test", hr.Version)
	require.Equal(t, "ok", hr.Checks.Database)

	require.NoError(t, s.store.Close())
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
