package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

func TestNavigateRecordsRedirectOnce(t *testing.T) {
	nav := NewNavigator(nil)
	nav.Visit(AdminHome)

	nav.Navigate(SignInPath)
	nav.Navigate(SignInPath)

	assert.Equal(t, SignInPath, nav.Current())
	assert.Equal(t, []string{SignInPath}, nav.DrainRedirects())
	assert.Empty(t, nav.DrainRedirects())
}

func TestHomeFor(t *testing.T) {
	assert.Equal(t, ProviderHome, HomeFor(domain.RoleProvider))
	assert.Equal(t, SuperAdminHome, HomeFor(domain.RoleSuperAdmin))
	assert.Equal(t, SignInPath, HomeFor(domain.Role("guest")))
}
