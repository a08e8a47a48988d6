package domain

import "time"

// UserKey names a unique lookup field of a User.
type UserKey string

const (
	UserByID       UserKey = "id"
	UserByUsername UserKey = "username"
	UserByEmail    UserKey = "email"
)

// User models an account that can authenticate against the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	RoleID       string    `json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	Username    *string
	Email       *string
	FullName    *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
	RoleID      *string
}

// Empty reports whether the patch carries no field at all.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FullName == nil && p.Password == nil &&
		p.IsActive == nil && p.IsSuperuser == nil && p.RoleID == nil
}
