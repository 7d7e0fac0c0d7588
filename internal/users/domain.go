package users

import "errors"

// Role determines which requests a user sees and which mutations they may perform.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBuyer  Role = "buyer"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBuyer, RoleClient:
		return true
	}
	return false
}

// User is an actor of the procurement workflow.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// IsZero reports whether no user is set.
func (u User) IsZero() bool {
	return u.ID == ""
}

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("users: not found")
