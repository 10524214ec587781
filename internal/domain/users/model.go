package users

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a staff member as returned by /api/users and /api/me.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Facility string `json:"facility"`
	Role     Role   `json:"role"`
}

// IsAdmin role comparison is case-insensitive, the backend stores whatever was typed at signup.
func (u User) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(string(u.Role)), string(RoleAdmin))
}

// DisplayName falls back to the username, then a dash.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.Username); n != "" {
		return n
	}
	return "—"
}

// RoleLabel shown in the directory; empty role is a plain user.
func (u User) RoleLabel() string {
	if u.Role == "" {
		return string(RoleUser)
	}
	return string(u.Role)
}
