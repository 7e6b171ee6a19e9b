package middleware

import "github.com/gofiber/fiber/v2"

// OTP rejects tokens issued before the second factor was validated.
func OTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pending, _ := claims(c)["otp"].(bool); pending {
			return reject(c, fiber.StatusBadRequest, "2FA required")
		}
		return c.Next()
	}
}
