package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// bearerToken returns the raw token from the Authorization header, or "".
func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAdmin rejects requests whose bearer token does not carry the
// admin role. The token signature is not verified here; the backend
// remains the authority for anything it executes.
func RequireAdmin(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Auth.RequireAdmin(bearerToken(c))
		if err != nil {
			return fromError(c, err)
		}
		c.Locals("principal", p)
		return c.Next()
	}
}
