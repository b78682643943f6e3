package auth

import "strings"

// Realm roles
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleClinician   = "CLINICIAN"
	RoleNurse       = "NURSE"
)

// HasRole reports whether the principal holds role, compared case-insensitively.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the principal may act across tenants.
func (p *Principal) IsSuperAdmin() bool {
	return p.HasRole(RoleSuperAdmin)
}
