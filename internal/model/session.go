package model

import "strings"

// Role is the kind of authenticated user.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleAdmin    Role = "Admin"
)

// Session is the authenticated user as persisted under the "user" key.
type Session struct {
	Type  Role   `json:"type"`
	Email string `json:"email"`
}

// IsEmployee reports whether the session belongs to an employee. The role is
// compared case-insensitively.
func (s Session) IsEmployee() bool {
	return strings.EqualFold(string(s.Type), string(RoleEmployee))
}
