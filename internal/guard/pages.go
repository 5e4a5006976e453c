package guard

import (
	"strings"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
)

var pageRoles = []struct {
	prefix string
	roles  []domain.Role
}{
	{navigation.SuperAdminHome, []domain.Role{domain.RoleSuperAdmin}},
	{navigation.AdminHome, []domain.Role{domain.RoleAdmin}},
	{navigation.ProviderHome, []domain.Role{domain.RoleProvider}},
	{navigation.UploadDocumentsPath, []domain.Role{domain.RoleProvider}},
	{navigation.HomeownerHome, []domain.Role{domain.RoleHomeowner}},
}

// PageFor resolves the roles a path requires. Unprotected paths report ok=false.
func PageFor(path string) (Page, bool) {
	for _, entry := range pageRoles {
		if path == entry.prefix || strings.HasPrefix(path, entry.prefix+"/") {
			return Page{Path: path, Roles: entry.roles}, true
		}
	}
	return Page{}, false
}
