package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"loro-platform/utils"
)

// RateLimit applies a token bucket per caller: the authenticated user when known, the client IP otherwise.
// Idle buckets age out of an expirable LRU.
func RateLimit(rps, burst int) fiber.Handler {
	if rps <= 0 {
		rps = 20
	}
	if burst < rps {
		burst = rps
	}
	buckets := lru.NewLRU[string, *rate.Limiter](10000, nil, 10*time.Minute)

	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if rc := FromCtx(c); rc != nil {
			key = "user:" + rc.UserID
		}

		lim, ok := buckets.Get(key)
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			buckets.Add(key, lim)
		}
		if !lim.Allow() {
			c.Set(fiber.HeaderRetryAfter, "1")
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
