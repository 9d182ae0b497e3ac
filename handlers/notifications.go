package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/middleware"
	"loro-platform/services"
	"loro-platform/utils"
)

// StreamPollInterval is how often the SSE stream checks for new notifications.
var StreamPollInterval = 2 * time.Second

func SetupNotificationRoutes(r fiber.Router, svc *services.NotificationService) {
	r.Get("/me", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		list, total, err := svc.ListForUser(c.UserContext(), actor(c).UserID, c.QueryBool("unread"), p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "notifications retrieved", list, utils.NewMeta(p, total))
	})

	r.Patch("/read-all", func(c *fiber.Ctx) error {
		n, err := svc.MarkAllRead(c.UserContext(), actor(c).UserID)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "notifications marked read", fiber.Map{"updated": n})
	})

	r.Patch("/:id/read", func(c *fiber.Ctx) error {
		n, err := svc.MarkRead(c.UserContext(), actor(c).UserID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "notification marked read", n)
	})
}

// SetupNotificationStream mounts GET /notifications/stream, a server-sent event feed of the
// caller's new notifications for clients that cannot hold a WebSocket.
func SetupNotificationStream(app *fiber.App, svc *services.NotificationService, v *middleware.TokenVerifier, license fiber.Handler) {
	app.Get("/notifications/stream", middleware.QueryTokenAuth(v), license, func(c *fiber.Ctx) error {
		userID := actor(c).UserID
		// the request ctx is recycled once this handler returns, so nothing inside the
		// stream writer may touch c; shutdown is the only signal taken from it
		shutdown := c.Context().Done()

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ticker := time.NewTicker(StreamPollInterval)
			defer ticker.Stop()

			cursor := time.Now().UTC()
			if _, err := w.WriteString(": connected\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					fresh, err := svc.Since(ctx, userID, cursor)
					cancel()
					if err != nil {
						log.Printf("❌ [SSE] poll failed for %s: %v", userID, err)
						continue
					}

					if len(fresh) == 0 {
						// keepalive doubles as disconnect detection
						if _, err := w.WriteString(":\n\n"); err != nil {
							return
						}
					}
					for _, n := range fresh {
						body, _ := json.Marshal(n)
						fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, body)
						cursor = n.CreatedAt
					}
					if err := w.Flush(); err != nil {
						log.Debugf("[SSE] %s disconnected", userID)
						return
					}
				case <-shutdown:
					return
				}
			}
		})
		return nil
	})
}
