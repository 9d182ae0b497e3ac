package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/utils"
)

// ServiceTokenAuth guards machine-to-machine endpoints (the identity provider's push hook)
// with a shared static token. An empty token disables the route.
func ServiceTokenAuth(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return utils.Fail(c, fiber.StatusNotFound, "not found")
		}
		header := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" {
			log.Printf("🚫 [SERVICE_AUTH] missing token for %s", c.Path())
			return utils.Fail(c, fiber.StatusUnauthorized, "service token missing")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			log.Printf("❌ [SERVICE_AUTH] invalid token for %s (prefix: %.6s...)", c.Path(), token)
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid service token")
		}
		return c.Next()
	}
}
