package middleware

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
)

// RBAC enforces the casbin policy for (profile id, path, method).
func RBAC(enforcer *casbin.Enforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Policies are edited by the back office, reload them per request.
		if err := enforcer.LoadPolicy(); err != nil {
			return reject(c, fiber.StatusInternalServerError, "Internal server error")
		}

		accepted, err := enforcer.Enforce(ClaimID(c), c.Path(), c.Method())
		if err != nil {
			return reject(c, fiber.StatusInternalServerError, "Internal server error")
		}
		if !accepted {
			return reject(c, fiber.StatusForbidden, "Unauthorized")
		}
		return c.Next()
	}
}
