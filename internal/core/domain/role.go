package domain

// RoleKey names a unique lookup field of a Role.
type RoleKey string

const (
	RoleByID   RoleKey = "id"
	RoleByName RoleKey = "name"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RoleNames is the closed set of roles created at bootstrap.
var RoleNames = []string{RoleUser, RoleAdmin}

// Role is a named privilege group. Every user references exactly one role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ValidRoleName reports whether name belongs to RoleNames.
func ValidRoleName(name string) bool {
	for _, n := range RoleNames {
		if n == name {
			return true
		}
	}
	return false
}
