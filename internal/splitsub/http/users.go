package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/service"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/httpx"
	"github.com/aussiebroadwan/splitsub/pkg/validate"
)

type usersHandler struct {
	users *service.UserService
}

func (h *usersHandler) me(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	u, err := h.users.Get(r.Context(), id.UserID)
	if err != nil {
		return err
	}
	httpx.WriteSuccess(w, http.StatusOK, userResponse{User: newUserView(u)}, "")
	return nil
}

func (h *usersHandler) list(w http.ResponseWriter, r *http.Request) error {
	page, _ := validate.QueryFrom[validate.Pagination](r.Context())

	users, total, err := h.users.List(r.Context(), page.Offset(), page.Limit)
	if err != nil {
		return err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}

	httpx.WritePaginated(w, views, httpx.NewPageInfo(page.Page, page.Limit, total), "Users retrieved successfully")
	return nil
}

// get and update admit the owner or an ADMIN. Anyone else sees 404 so the
// id's existence is not leaked.
func (h *usersHandler) get(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	params, _ := validate.ParamsFrom[validate.UserIDParam](r.Context())
	if err := authz.CanActOn(id, params.ID, authz.RoleAdmin); err != nil {
		return err
	}

	u, err := h.users.Get(r.Context(), params.ID)
	if err != nil {
		return err
	}
	httpx.WriteSuccess(w, http.StatusOK, userResponse{User: newUserView(u)}, "User retrieved successfully")
	return nil
}

func (h *usersHandler) update(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	params, _ := validate.ParamsFrom[validate.UserIDParam](r.Context())
	if err := authz.CanActOn(id, params.ID, authz.RoleAdmin); err != nil {
		return err
	}
	body, _ := validate.BodyFrom[validate.UpdateProfileRequest](r.Context())

	u, err := h.users.Update(r.Context(), params.ID, service.ProfileUpdate{Name: body.Name, Phone: body.Phone})
	if err != nil {
		return err
	}
	httpx.WriteSuccess(w, http.StatusOK, userResponse{User: newUserView(u)}, "User updated successfully")
	return nil
}

func (h *usersHandler) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	params, _ := validate.ParamsFrom[validate.UserIDParam](r.Context())

	if err := h.users.Delete(r.Context(), id, params.ID); err != nil {
		return err
	}
	httpx.WriteSuccess(w, http.StatusOK,
		deletedResponse{DeletedID: params.ID, DeletedAt: time.Now().UTC()}, "User deleted successfully")
	return nil
}
