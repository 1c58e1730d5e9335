package auth

import "time"

// RoleName is the closed set of roles the portal recognizes. Authorization
// decisions compare against these constants, never against ad-hoc strings.
type RoleName string

const (
	RoleAdmin      RoleName = "admin"
	RoleRegulator  RoleName = "regulator"
	RoleAuditor    RoleName = "auditor"
	RoleEnterprise RoleName = "enterprise"
)

// KnownRoles lists every role the seeder provisions, in creation order.
var KnownRoles = []RoleName{RoleAdmin, RoleRegulator, RoleAuditor, RoleEnterprise}

// KnownRole reports whether name is part of the closed role set.
func KnownRole(name string) (RoleName, bool) {
	switch RoleName(name) {
	case RoleAdmin, RoleRegulator, RoleAuditor, RoleEnterprise:
		return RoleName(name), true
	}
	return "", false
}

// Elevated reports whether the role may only be granted by an administrator.
// Self-registration is restricted to the remaining low-privilege roles.
func (r RoleName) Elevated() bool {
	return r == RoleAdmin || r == RoleRegulator
}

// User is an account that can authenticate against the portal.
// The password hash never leaves the auth package boundary.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name,omitempty"`
	PasswordHash   string     `json:"-"`
	Active         bool       `json:"is_active"`
	Verified       bool       `json:"is_verified"`
	RoleID         string     `json:"role_id"`
	OrganizationID string     `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// Role groups users under one of the known role names. The Permissions string
// is advisory documentation; enforcement happens on the role name alone.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions string    `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Principal is an authenticated user with their resolved role name.
type Principal struct {
	User *User
	Role RoleName
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
