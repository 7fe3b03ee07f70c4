// internal/app/system/authz/roles.go
package authz

import "strings"

// Role is one of the closed set of roles an actor can hold.
type Role string

const (
	RoleRequester         Role = "requester"
	RoleVolunteer         Role = "volunteer"
	RoleOrganizationAdmin Role = "organization_admin"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleRequester, RoleVolunteer, RoleOrganizationAdmin}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleRequester, RoleVolunteer, RoleOrganizationAdmin:
		return r, true
	}
	return "", false
}

// RoleSet is a set of roles. The zero value is empty.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// ParseRoleSet keeps the known names and returns the unknown ones separately.
func ParseRoleSet(names []string) (RoleSet, []string) {
	s := make(RoleSet, len(names))
	var unknown []string
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			s[r] = struct{}{}
		} else {
			unknown = append(unknown, n)
		}
	}
	return s, unknown
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Intersects reports whether the set shares at least one role with want.
func (s RoleSet) Intersects(want ...Role) bool {
	for _, r := range want {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Strings returns the roles in AllRoles order.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, string(r))
		}
	}
	return out
}
