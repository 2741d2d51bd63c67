package httpx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/httpx"
)

func TestResponderEnvelope(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation(""), 400, "VALIDATION_ERROR"},
		{apperr.Auth(""), 401, "AUTH_ERROR"},
		{apperr.Authorization(""), 403, "AUTHORIZATION_ERROR"},
		{apperr.NotFound(""), 404, "NOT_FOUND_ERROR"},
		{apperr.Conflict(""), 409, "CONFLICT_ERROR"},
		{apperr.RateLimit("", "", time.Minute), 429, "RATE_LIMIT_ERROR"},
		{apperr.Database(""), 500, "DATABASE_ERROR"},
		{apperr.Internal(""), 500, "INTERNAL_ERROR"},
		{apperr.ExternalService(""), 502, "EXTERNAL_SERVICE_ERROR"},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("User not found")), 404, "NOT_FOUND_ERROR"},
		{context.DeadlineExceeded, 500, "DATABASE_ERROR"},
	}

	resp := &httpx.Responder{}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			resp.Respond(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			require.Equal(t, tt.status, w.Code)
			require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"))

			body := decodeError(t, w)
			require.Equal(t, tt.code, body["code"])
			require.NotEmpty(t, body["message"])

			ts, ok := body["timestamp"].(string)
			require.True(t, ok)
			_, err := time.Parse(time.RFC3339, ts)
			require.NoError(t, err)
		})
	}
}

func TestResponderDetailsDisclosure(t *testing.T) {
	unsafe := apperr.Database("").WithDetails(map[string]string{"query": "SELECT secret"})
	safe := apperr.Validation("").WithSafeDetails([]string{"email is required"})

	respond := func(rs *httpx.Responder, err error) map[string]any {
		w := httptest.NewRecorder()
		rs.Respond(w, httptest.NewRequest(http.MethodGet, "/", nil), err)
		return decodeError(t, w)
	}

	prod := &httpx.Responder{Production: true}
	dev := &httpx.Responder{}

	require.NotContains(t, respond(prod, unsafe), "details")
	require.Contains(t, respond(dev, unsafe), "details")
	require.Contains(t, respond(prod, safe), "details")
}

func TestResponderHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	(&httpx.Responder{Production: true}).Respond(w, httptest.NewRequest(http.MethodGet, "/", nil),
		fmt.Errorf("pq: password authentication failed for user admin"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "password authentication")
}

func TestWritePaginated(t *testing.T) {
	w := httptest.NewRecorder()
	httpx.WritePaginated(w, []string{"a", "b"}, httpx.NewPageInfo(2, 2, 5), "")

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Items      []string       `json:"items"`
			Pagination httpx.PageInfo `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.Equal(t, []string{"a", "b"}, env.Data.Items)
	require.Equal(t, httpx.PageInfo{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, env.Data.Pagination)
}

func TestSecurityHeaders(t *testing.T) {
	calls := 0
	h := httpx.Chain(okHandler(&calls), httpx.SecurityHeaders(true))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	require.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	require.Contains(t, w.Header().Get("Cache-Control"), "no-store")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Empty(t, w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	httpx.Chain(okHandler(&calls), httpx.SecurityHeaders(false)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	calls := 0
	h := httpx.Chain(okHandler(&calls), httpx.CORS([]string{"http://localhost:5173"}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, 2, calls, "preflight does not reach the handler")
}

func TestRequireJSON(t *testing.T) {
	calls := 0
	h := httpx.Chain(okHandler(&calls), httpx.RequireJSON(&httpx.Responder{}))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_CONTENT_TYPE", decodeError(t, w)["code"])

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, calls)
}

func TestRecover(t *testing.T) {
	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}), httpx.Recover(&httpx.Responder{}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "INTERNAL_ERROR", decodeError(t, w)["code"])
	require.NotContains(t, w.Body.String(), "kaboom")
}
