package devbackend

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/auth"
	"github.com/spec-kit/homeservices-portal/internal/config"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/observability"
)

// MaxUploadSize is the per-file ceiling the stub enforces.
const MaxUploadSize = 5 << 20

// Server is a local stand-in for the remote REST service the portal talks to.
type Server struct {
	app        *fiber.App
	state      *state
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// New builds the stub and seeds its admin accounts and sample reports.
func New(cfg config.DevBackendConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		state:      newState(),
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
	if err := s.seed(cfg); err != nil {
		return nil, err
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: detailErrorHandler(logger),
		BodyLimit:    2*MaxUploadSize + 1<<20,
	})
	s.app.Use(observability.RequestLogger(logger, nil))
	s.routes()
	return s, nil
}

// App exposes the fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	mw := auth.NewAuthMiddleware(s.tokens)

	s.app.Post("/signin", s.signIn)
	s.app.Post("/register/homeowner", s.registerHomeowner)
	s.app.Post("/register/provider/request", s.registerProvider)

	authed := s.app.Group("", mw.Handle, auth.RequireAnyRole())
	authed.Get("/auth/validate", s.validate)
	authed.Get("/auth/validate/user", s.validate)

	provider := s.app.Group("/provider", mw.Handle, auth.RequireRole(domain.RoleProvider))
	provider.Get("/status", s.providerStatus)
	provider.Post("/upload-documents", s.uploadDocuments)

	admin := s.app.Group("/admin", mw.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/registration-requests", s.listApplications)
	admin.Post("/registration-requests/:id/approve", s.approveApplication)
	admin.Post("/registration-requests/:id/reject", s.rejectApplication)

	reports := s.app.Group("/reports", mw.Handle, auth.RequireRole(domain.RoleAdmin))
	reports.Get("", s.listReports)
	reports.Post("/:id/resolve", s.resolveReport)
	reports.Post("/:id/dismiss", s.dismissReport)
}

func (s *Server) seed(cfg config.DevBackendConfig) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	seeds := []struct {
		email, password, name string
		super                 bool
	}{
		{cfg.AdminEmail, cfg.AdminPassword, "Site Admin", false},
		{cfg.SuperAdminEmail, cfg.SuperAdminPassword, "Super Admin", true},
	}
	for _, seed := range seeds {
		if seed.email == "" || seed.password == "" {
			continue
		}
		hash, err := auth.HashPassword(seed.password, s.bcryptCost)
		if err != nil {
			return err
		}
		s.state.accounts[seed.email] = &account{
			ID:           s.state.id(),
			Email:        seed.email,
			FullName:     seed.name,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			SuperAdmin:   seed.super,
		}
	}

	now := time.Now().UTC()
	s.state.addReport("No-show", "Provider did not arrive for a confirmed booking", "homeowner@example.com", "provider@example.com", now.Add(-2*time.Hour))
	s.state.addReport("Abusive messages", "Rude language in booking chat", "provider@example.com", "homeowner@example.com", now.Add(-time.Hour))
	return nil
}

// detailErrorHandler renders failures the way the remote service does: {"detail": "..."}.
func detailErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("dev backend request failed", zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"detail": message})
	}
}
