// Package models defines the domain records shared across Sentinela.
package models

import "time"

// Role represents a user role.
type Role string

const (
	// RoleAdmin receives admin-scoped alerts and can manage rules.
	RoleAdmin Role = "admin"
	// RoleMember is a regular CRM user (salesperson, support agent).
	RoleMember Role = "member"
)

// User is a CRM back-office user. The alert engine reads users in two
// ways: the admin roster (role = admin) and the responsible party
// referenced by an issue.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
