package models

import "strings"

// Role is the portal role carried by an authenticated account
type Role string

// Portal roles
const (
	RoleResident Role = "resident"
	RoleTanod    Role = "tanod"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// ParseRole parses a role, ignoring case
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleResident, RoleTanod, RoleEmployee, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor identifies who performs an operation. It is built per request and
// passed into every core operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Is reports whether the actor holds one of the given roles
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Staff reports whether the actor is an employee or admin
func (a Actor) Staff() bool {
	return a.Is(RoleEmployee, RoleAdmin)
}
