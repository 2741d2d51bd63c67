package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the splitsub API.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new API client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and returns a session for it.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", "", req)
	if err != nil {
		return nil, err
	}
	payload, err := decodeData[sessionPayload](resp, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return newSession(c, payload.User, payload.Tokens), nil
}

// Login exchanges credentials for a session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", "", loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	payload, err := decodeData[sessionPayload](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, payload.User, payload.Tokens), nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return Tokens{}, err
	}
	payload, err := decodeData[tokensPayload](resp, http.StatusOK)
	if err != nil {
		return Tokens{}, err
	}
	return payload.Tokens, nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokens, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, User{}, tokens), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// The session will still perform auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(tokens Tokens) *Session {
	return newSession(c, User{}, tokens)
}
