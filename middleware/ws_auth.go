package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/utils"
)

// QueryTokenAuth authenticates WebSocket and SSE upgrades from `?token=`, since
// browsers cannot set headers on those requests. A bearer header is accepted too.
func QueryTokenAuth(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Query("token"))
		if raw == "" {
			raw, _ = strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
			raw = strings.TrimSpace(raw)
		}
		if raw == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "missing token")
		}

		claims, err := v.Verify(raw)
		if err != nil {
			log.Printf("❌ [WS_AUTH] token rejected for %s (len=%d): %v", c.Path(), len(raw), err)
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		rc := attach(c, claims)
		log.Debugf("✅ [WS_AUTH] %s authenticated on %s", rc.UserID, c.Path())
		return c.Next()
	}
}
