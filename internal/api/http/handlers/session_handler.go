package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeservices-portal/internal/api/dto"
	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/service"
)

// SessionHandler exposes sign-in, sign-out and registration to the UI.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /session.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, ok := h.sessions.Current()
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(sess, ok)})
}

// SignIn handles POST /session/signin.
func (h *SessionHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	outcome, err := h.sessions.SignIn(c.UserContext(), req.Email, req.Password, role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"session":     dto.NewSessionResponse(outcome.Session, true).Session,
			"destination": outcome.Destination,
			"is_pending":  outcome.IsPending,
		},
	})
}

// SignOut handles POST /session/signout.
func (h *SessionHandler) SignOut(c *fiber.Ctx) error {
	if err := h.sessions.SignOut(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RegisterHomeowner handles POST /register/homeowner.
func (h *SessionHandler) RegisterHomeowner(c *fiber.Ctx) error {
	var req dto.HomeownerRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "full_name, email, password required")
	}

	id, err := h.sessions.RegisterHomeowner(c.UserContext(), apiclient.HomeownerRegistration{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// RegisterProvider handles POST /register/provider.
func (h *SessionHandler) RegisterProvider(c *fiber.Ctx) error {
	var req dto.ProviderRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "full_name, email, password required")
	}

	id, err := h.sessions.RegisterProvider(c.UserContext(), apiclient.ProviderApplication{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		PhoneNumber:     req.PhoneNumber,
		Address:         req.Address,
		YearsExperience: req.YearsExperience,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"request_id": id}})
}
