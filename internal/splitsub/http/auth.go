package http

import (
	"net/http"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/service"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/httpx"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
	"github.com/aussiebroadwan/splitsub/pkg/validate"
)

type authHandler struct {
	auth *service.AuthService
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) error {
	body, _ := validate.BodyFrom[validate.RegisterRequest](r.Context())

	s, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
		Phone:    body.Phone,
	})
	if err != nil {
		return err
	}

	httpx.WriteSuccess(w, http.StatusCreated,
		sessionResponse{User: newUserView(s.User), Tokens: s.Tokens}, "User registered successfully")
	return nil
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) error {
	body, _ := validate.BodyFrom[validate.LoginRequest](r.Context())

	s, err := h.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}

	httpx.WriteSuccess(w, http.StatusOK,
		sessionResponse{User: newUserView(s.User), Tokens: s.Tokens}, "Login successful")
	return nil
}

func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) error {
	body, _ := validate.BodyFrom[validate.RefreshRequest](r.Context())

	pair, err := h.auth.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		return err
	}

	httpx.WriteSuccess(w, http.StatusOK, tokensResponse{Tokens: pair}, "Token refreshed successfully")
	return nil
}

// logout is stateless: tokens are discarded by the client.
func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) error {
	if id, ok := authz.FromContext(r.Context()); ok {
		slogx.FromContext(r.Context()).Info("user logged out", "user_id", id.UserID)
	}
	httpx.WriteSuccess(w, http.StatusOK, nil, "Logout successful")
	return nil
}

func (h *authHandler) profile(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}

	u, err := h.auth.Profile(r.Context(), id.UserID)
	if err != nil {
		return err
	}

	httpx.WriteSuccess(w, http.StatusOK, userResponse{User: newUserView(u)}, "")
	return nil
}

func (h *authHandler) updateProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	body, _ := validate.BodyFrom[validate.UpdateProfileRequest](r.Context())

	u, err := h.auth.UpdateProfile(r.Context(), id.UserID, service.ProfileUpdate{Name: body.Name, Phone: body.Phone})
	if err != nil {
		return err
	}

	httpx.WriteSuccess(w, http.StatusOK, userResponse{User: newUserView(u)}, "Profile updated successfully")
	return nil
}

func (h *authHandler) changePassword(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	body, _ := validate.BodyFrom[validate.ChangePasswordRequest](r.Context())

	if err := h.auth.ChangePassword(r.Context(), id.UserID, body.CurrentPassword, body.NewPassword); err != nil {
		return err
	}

	httpx.WriteSuccess(w, http.StatusOK, nil, "Password changed successfully")
	return nil
}

func (h *authHandler) admin(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	httpx.WriteSuccess(w, http.StatusOK, id, "Admin access granted")
	return nil
}
