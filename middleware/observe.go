package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/metrics"
)

// Observe records Prometheus request metrics and writes one access log line per request.
func Observe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		done := metrics.RequestStarted()
		defer done()

		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the app error handler write the response before we read the status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}
		took := time.Since(start)
		status := c.Response().StatusCode()

		route := ""
		if r := c.Route(); r != nil {
			route = r.Path
		}
		metrics.ObserveRequest(c.Method(), route, status, took)

		fields := log.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  status,
			"latency": took.String(),
			"ip":      c.IP(),
		}
		if rc := FromCtx(c); rc != nil {
			fields["user_id"] = rc.UserID
		}
		entry := log.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("❌ [HTTP] request failed")
		case status >= 400:
			entry.Warn("⚠️ [HTTP] request rejected")
		default:
			entry.Info("✅ [HTTP] request")
		}
		return err
	}
}
