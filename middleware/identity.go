package middleware

import (
	"github.com/gofiber/fiber/v2"

	"lise-messenger/session"
)

// Identity puts the token's profile id into the request's user context for the service layer.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := ClaimID(c)
		if id == "" {
			return reject(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
		}

		c.Locals("profile_id", id)
		c.SetUserContext(session.WithProfile(c.UserContext(), id))
		return c.Next()
	}
}
