package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWT validates the HS512 access token and stores it in Locals("user").
func JWT(key string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwtware.HS512,
			Key:    []byte(key),
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return reject(c, fiber.StatusBadRequest, "Missing or malformed JWT")
			}
			return reject(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
		},
	})
}

// claims returns the claims of the token JWT stored, or nil.
func claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	mc, _ := token.Claims.(jwt.MapClaims)
	return mc
}

// ClaimID returns the profile id of the validated token, or "".
func ClaimID(c *fiber.Ctx) string {
	id, _ := claims(c)["id"].(string)
	return id
}
