package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeservices-portal/internal/service"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// NoticesHandler serves the dismissable notice board.
type NoticesHandler struct {
	notices *service.NotificationService
}

// NewNoticesHandler constructs handler.
func NewNoticesHandler(notices *service.NotificationService) *NoticesHandler {
	return &NoticesHandler{notices: notices}
}

// List handles GET /notices.
func (h *NoticesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.notices.Notices()})
}

// Dismiss handles DELETE /notices/:id.
func (h *NoticesHandler) Dismiss(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.notices.Dismiss(id) {
		return apperrors.NewNotFound("notice", map[string]any{"id": id})
	}
	return c.SendStatus(http.StatusNoContent)
}
