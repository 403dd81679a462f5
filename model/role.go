package model

import "fmt"

// Role identifies what a user is allowed to do. It is a closed set; anything
// outside it is rejected at the API boundary via ParseRole.
type Role string

const (
	RoleSuperAdmin       Role = "SUPER_ADMIN"
	RoleInstitutionAdmin Role = "INSTITUTION_ADMIN"
	RoleStudent          Role = "STUDENT"
	RoleAlumni           Role = "ALUMNI"
)

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleInstitutionAdmin, RoleStudent, RoleAlumni:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// IsAdmin reports whether the role carries institution-level moderation
// privileges.
func (r Role) IsAdmin() bool {
	return r == RoleInstitutionAdmin || r == RoleSuperAdmin
}
