// Package middleware holds the fiber handlers that guard the /v1 routes.
package middleware

import "github.com/gofiber/fiber/v2"

// reject ends the request with the service's error envelope.
func reject(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}
