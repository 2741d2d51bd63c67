package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ============================================================================
// Profile
// ============================================================================

// Profile returns the caller's account.
func (s *Session) Profile(ctx context.Context) (User, error) {
	user, err := s.getUser(ctx, "/v1/auth/profile")
	if err != nil {
		return User{}, err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return user, nil
}

// UpdateProfile changes the caller's name or phone.
func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/auth/profile", req)
	if err != nil {
		return User{}, err
	}
	payload, err := decodeData[userPayload](resp, http.StatusOK)
	if err != nil {
		return User{}, err
	}
	s.mu.Lock()
	s.user = payload.User
	s.mu.Unlock()
	return payload.User, nil
}

// ChangePassword replaces the caller's password. Existing tokens stay valid.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/change-password", changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Me is the user resource view of Profile.
func (s *Session) Me(ctx context.Context) (User, error) {
	return s.getUser(ctx, "/v1/users/me")
}

// ============================================================================
// Users
// ============================================================================

// GetUser fetches a user by id. Users other than the caller are only
// visible to admins; everyone else gets a 404.
func (s *Session) GetUser(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, "/v1/users/"+url.PathEscape(id))
}

// UpdateUser changes another user's profile, subject to the same
// visibility rules as GetUser.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateProfileRequest) (User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(id), req)
	if err != nil {
		return User{}, err
	}
	payload, err := decodeData[userPayload](resp, http.StatusOK)
	if err != nil {
		return User{}, err
	}
	return payload.User, nil
}

// ============================================================================
// Admin
// ============================================================================

// ListUsers pages through all accounts. Requires ADMIN or SUPERADMIN.
// Zero page or limit uses the server defaults.
func (s *Session) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeData[UserList](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteUser removes an account. Requires ADMIN or SUPERADMIN. Callers
// cannot delete themselves.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// CheckAdmin reports the caller's identity if it holds an admin role.
func (s *Session) CheckAdmin(ctx context.Context) (Identity, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/admin", nil)
	if err != nil {
		return Identity{}, err
	}
	return decodeData[Identity](resp, http.StatusOK)
}

func (s *Session) getUser(ctx context.Context, path string) (User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return User{}, err
	}
	payload, err := decodeData[userPayload](resp, http.StatusOK)
	if err != nil {
		return User{}, err
	}
	return payload.User, nil
}
