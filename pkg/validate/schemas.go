package validate

// Pagination is the common list query.
type Pagination struct {
	Page  int `query:"page" default:"1" validate:"gte=1"`
	Limit int `query:"limit" default:"10" validate:"gte=1,lte=100"`
}

// Offset is the number of rows to skip for the current page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// UserIDParam is the {id} path segment on user routes.
type UserIDParam struct {
	ID string `path:"id" validate:"required,uuid"`
}

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

// UpdateProfileRequest carries optional fields; nil means unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}
