package domain

import (
	"fmt"
	"strings"
)

// Role determines which pages and actions a session may reach.
type Role string

const (
	RoleHomeowner  Role = "homeowner"
	RoleProvider   Role = "provider"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists every recognised role.
var Roles = []Role{RoleHomeowner, RoleProvider, RoleAdmin, RoleSuperAdmin}

var roleAliases = map[string]Role{
	"homeowner":        RoleHomeowner,
	"homeowners":       RoleHomeowner,
	"home_owner":       RoleHomeowner,
	"provider":         RoleProvider,
	"serviceproviders": RoleProvider,
	"service_provider": RoleProvider,
	"admin":            RoleAdmin,
	"super_admin":      RoleSuperAdmin,
	"superadmin":       RoleSuperAdmin,
}

// ErrUnknownRole is returned when a role string is outside the closed set.
type ErrUnknownRole struct {
	Value string
}

func (e ErrUnknownRole) Error() string {
	return fmt.Sprintf("unknown role %q", e.Value)
}

// ParseRole maps any of the backend's role spellings onto the closed set.
func ParseRole(raw string) (Role, error) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrUnknownRole{Value: raw}
	}
	return role, nil
}

// Valid reports whether r is one of the recognised roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHomeowner, RoleProvider, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// BackendName is the spelling the remote sign-in form expects.
func (r Role) BackendName() string {
	switch r {
	case RoleHomeowner:
		return "homeowners"
	case RoleProvider:
		return "serviceproviders"
	default:
		return string(r)
	}
}

// Satisfies reports whether a session holding r may enter a page open to required.
// A super admin satisfies every admin requirement.
func (r Role) Satisfies(required Role) bool {
	if r == required {
		return true
	}
	return r == RoleSuperAdmin && required == RoleAdmin
}
