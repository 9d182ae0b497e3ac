package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var startedAt = time.Now()

// SetupHealthRoutes mounts the unauthenticated liveness probe.
func SetupHealthRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		body := fiber.Map{
			"status":   "ok",
			"database": "ok",
			"uptime":   time.Since(startedAt).Round(time.Second).String(),
		}
		status := fiber.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			log.Errorf("❌ [HEALTH] database unreachable")
			body["status"], body["database"] = "degraded", "unreachable"
			status = fiber.StatusServiceUnavailable
		}

		if up, err := host.UptimeWithContext(ctx); err == nil {
			body["hostUptimeSeconds"] = up
		}
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
			body["memoryUsedPercent"] = vm.UsedPercent
		}
		return c.Status(status).JSON(body)
	})
}
