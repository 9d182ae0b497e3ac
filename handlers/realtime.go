package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/middleware"
	"loro-platform/realtime"
	"loro-platform/services"
)

const (
	wsActorKey   = "ws_actor"
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

// SetupRealtimeRoutes mounts GET /ws. Clients authenticate with ?token= and then receive
// every event for their organisation plus those addressed to them.
func SetupRealtimeRoutes(app *fiber.App, hub *realtime.Hub, v *middleware.TokenVerifier, guards ...fiber.Handler) {
	chain := []fiber.Handler{middleware.QueryTokenAuth(v)}
	chain = append(chain, guards...)
	chain = append(chain,
		func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			c.Locals(wsActorKey, actor(c))
			return c.Next()
		},
		websocket.New(func(conn *websocket.Conn) {
			a, ok := conn.Locals(wsActorKey).(services.Actor)
			if !ok {
				_ = conn.Close()
				return
			}
			serveSocket(conn, hub, a)
		}),
	)
	app.Get("/ws", chain...)
}

func serveSocket(conn *websocket.Conn, hub *realtime.Hub, a services.Actor) {
	client := hub.Register(a.UserID, a.OrganisationID)
	defer hub.Unregister(client)
	log.Printf("🔌 [WS] %s connected (%d online)", a.UserID, hub.Count())

	// reader: only used to notice the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "slow consumer"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Debugf("🔌 [WS] %s disconnected", a.UserID)
			return
		}
	}
}
