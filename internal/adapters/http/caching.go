package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control header on successful GET
// responses that did not set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return err
		}
		if c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "no-cache"
	case path == "/metrics" || strings.HasPrefix(path, "/ws/"):
		return "no-store"
	case strings.HasPrefix(path, "/v1/maps/nearby"):
		return "public, max-age=300"
	// Maps and routes change on rotate and crop.
	case strings.HasSuffix(path, "/geojson"), strings.HasSuffix(path, "/gpx"):
		return "public, max-age=60"
	case strings.HasSuffix(path, "/position"), strings.HasSuffix(path, "/replay"),
		strings.HasSuffix(path, "/project"), strings.HasSuffix(path, "/locate"):
		return "public, max-age=60"
	case path == "/v1/maps" || path == "/v1/routes":
		return "public, max-age=30"
	case strings.HasPrefix(path, "/v1/maps/"), strings.HasPrefix(path, "/v1/routes/"):
		return "public, max-age=60"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=60"
	}
	return ""
}
