package auth

import "strings"

// Role is the closed set of console roles. Role slugs are resolved to this
// enum once, when claims are built; call sites compare enum values and
// never re-normalize strings.
type Role string

const (
	RoleSuperAdmin    Role = "super-admin"
	RoleResellerAdmin Role = "reseller-admin"
	RoleSupervisor    Role = "supervisor"
	RoleTechnician    Role = "technician"
)

// ParseRole resolves a role slug to the enum. Unknown slugs are rejected
// rather than passed through.
func ParseRole(slug string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(slug))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	case RoleResellerAdmin:
		return RoleResellerAdmin, true
	case RoleSupervisor:
		return RoleSupervisor, true
	case RoleTechnician:
		return RoleTechnician, true
	}
	return "", false
}

// rank orders roles from least to most privileged.
func (r Role) rank() int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleResellerAdmin:
		return 3
	case RoleSupervisor:
		return 2
	case RoleTechnician:
		return 1
	}
	return 0
}

// Strongest returns the most privileged role among the given slugs, for
// users holding several roles. ok is false when no slug is recognized.
func Strongest(slugs []string) (Role, bool) {
	var best Role
	for _, s := range slugs {
		if r, ok := ParseRole(s); ok && r.rank() > best.rank() {
			best = r
		}
	}
	return best, best != ""
}
