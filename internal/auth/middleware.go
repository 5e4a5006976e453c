package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID  string
	Email      string
	Claims     *Claims
	Pending    bool
	SuperAdmin bool
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Could not validate credentials")
	}

	c.Locals(principalKey, &Principal{
		SubjectID:  claims.SubjectID,
		Email:      claims.Email,
		Claims:     claims,
		Pending:    claims.Pending,
		SuperAdmin: claims.SuperAdmin,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
