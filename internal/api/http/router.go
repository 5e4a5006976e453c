package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/homeservices-portal/internal/api/http/handlers"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/session"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Session       *handlers.SessionHandler
	Navigation    *handlers.NavigationHandler
	Provider      *handlers.ProviderHandler
	Registrations *handlers.ReviewListHandler[domain.RegistrationRequest]
	Reports       *handlers.ReviewListHandler[domain.Report]
	Dashboard     *handlers.DashboardHandler
	Notices       *handlers.NoticesHandler
	Tokens        *session.Store
	Gatherer      prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Get("/session", cfg.Session.Get)
	app.Post("/session/signin", cfg.Session.SignIn)
	app.Post("/session/signout", cfg.Session.SignOut)
	app.Post("/register/homeowner", cfg.Session.RegisterHomeowner)
	app.Post("/register/provider", cfg.Session.RegisterProvider)

	app.Post("/navigation/visit", cfg.Navigation.Visit)
	app.Get("/navigation/redirects", cfg.Navigation.Redirects)
	app.Get("/pages/check", cfg.Navigation.CheckPage)

	app.Get("/notices", cfg.Notices.List)
	app.Delete("/notices/:id", cfg.Notices.Dismiss)

	provider := app.Group("/provider", requireSessionRole(cfg.Tokens, domain.RoleProvider))
	provider.Get("/status", cfg.Provider.Status)
	provider.Post("/status/refresh", cfg.Provider.Refresh)
	provider.Post("/documents", cfg.Provider.UploadDocuments)

	admin := app.Group("/admin", requireSessionRole(cfg.Tokens, domain.RoleAdmin))
	admin.Post("/dashboard/mount", cfg.Dashboard.Mount)
	admin.Post("/dashboard/unmount", cfg.Dashboard.Unmount)

	admin.Get("/registrations", cfg.Registrations.List)
	admin.Post("/registrations/refresh", cfg.Registrations.Refresh)
	admin.Post("/registrations/:id/:action", cfg.Registrations.Act)

	admin.Get("/reports", cfg.Reports.List)
	admin.Post("/reports/refresh", cfg.Reports.Refresh)
	admin.Post("/reports/:id/:action", cfg.Reports.Act)
}
