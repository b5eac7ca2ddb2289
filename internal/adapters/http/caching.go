package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses that the
// handler left alone. Anything tied to a caller or to live trucks is
// private or uncached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/boundary" || path == "/v1/categories":
			ttl = "public, max-age=3600" // changes only on admin refresh

		case strings.HasPrefix(path, "/v1/geocode/"):
			ttl = "public, max-age=300"

		case path == "/v1/geofence/check":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/trucks"), strings.HasPrefix(path, "/v1/simulation"):
			ttl = "no-store"

		case strings.HasPrefix(path, "/v1/reports"):
			ttl = "private, no-cache" // visibility depends on the bearer token

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
