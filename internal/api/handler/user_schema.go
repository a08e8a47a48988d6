package handler

import (
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// --- Request types ---

type loginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=40"`
}

type signupRequest struct {
	Username string `json:"username"  validate:"required,max=255"`
	Email    string `json:"email"     validate:"required,email,max=255"`
	Password string `json:"password"  validate:"required,min=8,max=40"`
	FullName string `json:"full_name" validate:"max=255"`
}

type createUserRequest struct {
	Username    string  `json:"username"     validate:"required,max=255"`
	Email       string  `json:"email"        validate:"required,email,max=255"`
	Password    string  `json:"password"     validate:"required,min=8,max=40"`
	FullName    string  `json:"full_name"    validate:"max=255"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	RoleID      *string `json:"role_id"`
}

type updateMeRequest struct {
	Username *string `json:"username"  validate:"omitempty,max=255"`
	Email    *string `json:"email"     validate:"omitempty,email,max=255"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=8,max=40"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=40"`
}

type updateUserRequest struct {
	Username    *string `json:"username"     validate:"omitempty,max=255"`
	Email       *string `json:"email"        validate:"omitempty,email,max=255"`
	FullName    *string `json:"full_name"    validate:"omitempty,max=255"`
	Password    *string `json:"password"     validate:"omitempty,min=8,max=40"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	RoleID      *string `json:"role_id"`
}

type listUsersRequest struct {
	Skip  int `query:"skip"  validate:"min=0"`
	Limit int `query:"limit" validate:"min=0"`
}

// --- Response types ---

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	RoleID      string    `json:"role_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type usersResponse struct {
	Data  []userResponse `json:"data"`
	Count int64          `json:"count"`
}

// --- Mappers ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		RoleID:      u.RoleID,
		CreatedAt:   u.CreatedAt,
	}
}

func toUsersResponse(page *ports.ListUsersResult) usersResponse {
	data := make([]userResponse, 0, len(page.Items))
	for _, u := range page.Items {
		data = append(data, toUserResponse(u))
	}
	return usersResponse{Data: data, Count: page.Count}
}

func (r createUserRequest) toInput() ports.CreateUserInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return ports.CreateUserInput{
		Username:    r.Username,
		Email:       r.Email,
		Password:    r.Password,
		FullName:    r.FullName,
		IsActive:    active,
		IsSuperuser: r.IsSuperuser,
		RoleID:      r.RoleID,
	}
}

func (r updateUserRequest) toPatch() domain.UserPatch {
	return domain.UserPatch{
		Username:    r.Username,
		Email:       r.Email,
		FullName:    r.FullName,
		Password:    r.Password,
		IsActive:    r.IsActive,
		IsSuperuser: r.IsSuperuser,
		RoleID:      r.RoleID,
	}
}
