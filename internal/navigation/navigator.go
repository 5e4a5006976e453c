package navigation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// Page paths the controller navigates between.
const (
	SignInPath          = "/login"
	UploadDocumentsPath = "/register/upload-documents"
	PendingReviewPath   = "/dashboard/provider/pending_user"
	HomeownerHome       = "/dashboard/homeowner"
	ProviderHome        = "/dashboard/provider"
	AdminHome           = "/dashboard/admin"
	SuperAdminHome      = "/dashboard/superadmin"
)

// HomeFor returns the landing page for role, or the sign-in page for an unknown role.
func HomeFor(role domain.Role) string {
	switch role {
	case domain.RoleHomeowner:
		return HomeownerHome
	case domain.RoleProvider:
		return ProviderHome
	case domain.RoleAdmin:
		return AdminHome
	case domain.RoleSuperAdmin:
		return SuperAdminHome
	default:
		return SignInPath
	}
}

// Navigator tracks where the UI currently is and records forced redirects.
type Navigator struct {
	mu        sync.Mutex
	current   string
	redirects []string
	logger    *zap.Logger
}

// NewNavigator starts at the sign-in page.
func NewNavigator(logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{current: SignInPath, logger: logger}
}

// Current returns the page the UI is on.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Visit records a location reported by the UI itself.
func (n *Navigator) Visit(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = path
}

// Navigate forces the UI to path. The redirect is queued for the UI to pick up.
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == path {
		return
	}
	n.logger.Info("navigate", zap.String("from", n.current), zap.String("to", path))
	n.current = path
	n.redirects = append(n.redirects, path)
}

// DrainRedirects returns and forgets the redirects issued since the last call.
func (n *Navigator) DrainRedirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.redirects
	n.redirects = nil
	return out
}
