package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that have none and
// answers If-None-Match with 304 using a weak ETag of the body.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet {
			return nil
		}

		if c.GetRespHeader(fiber.HeaderCacheControl) == "" {
			if ttl := cacheControlFor(c.Path()); ttl != "" {
				c.Set(fiber.HeaderCacheControl, ttl)
			}
		}

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		h := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(h[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "no-cache"
	case path == "/metrics":
		return "no-cache"
	case strings.HasPrefix(path, "/v1/isochrones/"):
		return "public, max-age=86400" // archived results never change
	case path == "/v1/isochrones":
		return "private, max-age=0"
	case path == "/v1/route":
		return "public, max-age=300"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=60"
	}
	return ""
}
