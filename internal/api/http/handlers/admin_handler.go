package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeservices-portal/internal/review"
	"github.com/spec-kit/homeservices-portal/internal/service"
)

// ReviewListHandler exposes one admin pending list.
type ReviewListHandler[T review.Item] struct {
	sync *review.Synchronizer[T]
}

// NewReviewListHandler constructs handler.
func NewReviewListHandler[T review.Item](sync *review.Synchronizer[T]) *ReviewListHandler[T] {
	return &ReviewListHandler[T]{sync: sync}
}

// List returns the current working set without touching the backend.
func (h *ReviewListHandler[T]) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.sync.View()})
}

// Refresh is the manual refresh button.
func (h *ReviewListHandler[T]) Refresh(c *fiber.Ctx) error {
	if _, err := h.sync.Refresh(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.sync.View()})
}

// Act handles POST /:id/:action.
func (h *ReviewListHandler[T]) Act(c *fiber.Ctx) error {
	if err := h.sync.Act(c.UserContext(), c.Params("action"), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.sync.View()})
}

// DashboardHandler mounts and unmounts the admin dashboard.
type DashboardHandler struct {
	dashboard *service.AdminDashboard
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.AdminDashboard) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Mount handles POST /admin/dashboard/mount.
func (h *DashboardHandler) Mount(c *fiber.Ctx) error {
	resp := fiber.Map{"mounted": true}
	if err := h.dashboard.Mount(c.UserContext()); err != nil {
		resp["load_error"] = err.Error()
	}
	resp["mounted"] = h.dashboard.Mounted()
	return c.JSON(fiber.Map{"data": resp})
}

// Unmount handles POST /admin/dashboard/unmount.
func (h *DashboardHandler) Unmount(c *fiber.Ctx) error {
	h.dashboard.Unmount()
	return c.SendStatus(http.StatusNoContent)
}
