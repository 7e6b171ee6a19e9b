package controller

import (
	"github.com/gofiber/fiber/v2"
)

// Health answers liveness and readiness probes. ready reports whether dependencies respond.
type Health struct {
	ready func() error
}

func NewHealth(ready func() error) *Health {
	return &Health{ready: ready}
}

func (h *Health) Live(c *fiber.Ctx) error {
	return success(c, fiber.Map{"alive": true})
}

func (h *Health) Ready(c *fiber.Ctx) error {
	if err := h.ready(); err != nil {
		return failure(c, fiber.StatusServiceUnavailable, "not ready")
	}
	return success(c, fiber.Map{"ready": true})
}
