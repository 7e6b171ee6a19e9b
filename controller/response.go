package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"lise-messenger/utils"
)

func success(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

func internalError(c *fiber.Ctx) error {
	return failure(c, fiber.StatusInternalServerError, "Internal server error")
}

// StatusOf maps an error code to its HTTP status.
func StatusOf(code utils.Code) int {
	switch code {
	case utils.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case utils.CodePermissionDenied:
		return fiber.StatusForbidden
	case utils.CodeNotFound:
		return fiber.StatusNotFound
	case utils.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case utils.CodeFailedPrecondition:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// serviceError writes err in the response envelope. Backend details never reach the client.
func serviceError(c *fiber.Ctx, err error) error {
	status := StatusOf(utils.CodeOf(err))
	if status == fiber.StatusInternalServerError {
		return internalError(c)
	}

	message := err.Error()
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	return failure(c, status, message)
}
