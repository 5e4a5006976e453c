package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// RequireRole ensures the principal holds one of the allowed roles.
// A super admin passes wherever admin is allowed.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
		}
		role := principal.Claims.Role
		if role == domain.RoleAdmin && principal.SuperAdmin {
			role = domain.RoleSuperAdmin
		}
		for _, required := range allowed {
			if role.Satisfies(required) {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Insufficient permissions")
	}
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
		}
		return c.Next()
	}
}
