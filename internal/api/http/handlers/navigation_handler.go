package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeservices-portal/internal/api/dto"
	"github.com/spec-kit/homeservices-portal/internal/guard"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
)

// NavigationHandler lets the UI report where it is, ask whether a page may render,
// and collect the redirects the controller issued.
type NavigationHandler struct {
	guard *guard.Guard
	nav   *navigation.Navigator
}

// NewNavigationHandler constructs handler.
func NewNavigationHandler(g *guard.Guard, nav *navigation.Navigator) *NavigationHandler {
	return &NavigationHandler{guard: g, nav: nav}
}

// Visit handles POST /navigation/visit.
func (h *NavigationHandler) Visit(c *fiber.Ctx) error {
	var req dto.VisitRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return fiber.NewError(http.StatusBadRequest, "path required")
	}
	h.nav.Visit(req.Path)
	return c.SendStatus(http.StatusNoContent)
}

// Redirects handles GET /navigation/redirects. Each redirect is returned once.
func (h *NavigationHandler) Redirects(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"current":   h.nav.Current(),
			"redirects": h.nav.DrainRedirects(),
		},
	})
}

// CheckPage handles GET /pages/check?path=. Every call is a fresh mount.
func (h *NavigationHandler) CheckPage(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return fiber.NewError(http.StatusBadRequest, "path required")
	}

	page, protected := guard.PageFor(path)
	if !protected {
		return c.JSON(fiber.Map{"data": guard.Decision{State: guard.StateGranted, View: path}})
	}

	decision := h.guard.Mount(page).Check(c.UserContext())
	return c.JSON(fiber.Map{"data": decision})
}
