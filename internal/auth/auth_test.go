package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(Claims{SubjectID: "42", Email: "p@example.com", Role: domain.RoleProvider, Pending: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.SubjectID)
	assert.Equal(t, domain.RoleProvider, claims.Role)
	assert.True(t, claims.Pending)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Now().Add(-time.Hour)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken(Claims{SubjectID: "1", Role: domain.RoleHomeowner})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestForeignSecretRejected(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken(Claims{SubjectID: "1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("pw", 1)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "pw"))
	assert.Error(t, ComparePassword(hashed, "other"))
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := fiber.New()
	app.Get("/admin", NewAuthMiddleware(tm).Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	bearer := func(claims Claims) string {
		token, _, err := tm.GenerateToken(claims)
		require.NoError(t, err)
		return "Bearer " + token
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"admin", bearer(Claims{SubjectID: "1", Role: domain.RoleAdmin}), http.StatusNoContent},
		{"super admin flag", bearer(Claims{SubjectID: "2", Role: domain.RoleAdmin, SuperAdmin: true}), http.StatusNoContent},
		{"super admin role", bearer(Claims{SubjectID: "3", Role: domain.RoleSuperAdmin}), http.StatusNoContent},
		{"homeowner", bearer(Claims{SubjectID: "4", Role: domain.RoleHomeowner}), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
