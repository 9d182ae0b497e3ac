// Package realtime fans domain events out to connected WebSocket clients.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Event names published by the services.
const (
	QuotationNew           = "quotation:new"
	QuotationSent          = "quotation:sent"
	QuotationStatusChanged = "quotation:status-changed"
	LeaveStatusChanged     = "leave:status-changed"
	RewardsXPAwarded       = "rewards:xp-awarded"
	RewardsLevelUp         = "rewards:level-up"
	NotificationNew        = "notification:new"
	NewsPublished          = "news:published"
)

// Event is the envelope written to clients. An empty UserID targets the whole organisation.
type Event struct {
	Name           string      `json:"event"`
	OrganisationID string      `json:"organisationId"`
	UserID         string      `json:"userId,omitempty"`
	Data           interface{} `json:"data"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Publisher is what services depend on to emit events.
type Publisher interface {
	Publish(e Event)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Client is one registered connection.
type Client struct {
	UserID         string
	OrganisationID string
	send           chan []byte
}

// Messages yields encoded events for this client; it is closed when the hub drops the client.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

func (c *Client) wants(e Event) bool {
	if e.OrganisationID != c.OrganisationID {
		return false
	}
	return e.UserID == "" || e.UserID == c.UserID
}

// Hub tracks clients and delivers events without blocking publishers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{clients: make(map[*Client]struct{}), buffer: buffer}
}

func (h *Hub) Register(userID, organisationID string) *Client {
	c := &Client{UserID: userID, OrganisationID: organisationID, send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Debugf("🔌 [WS] client registered user=%s org=%s", userID, organisationID)
	return c
}

// Unregister removes c and closes its channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers e to every matching client. A client whose buffer is full is dropped.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("❌ [WS] failed to encode %s: %v", e.Name, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.wants(e) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warnf("⚠️ [WS] dropping slow client user=%s", c.UserID)
		h.Unregister(c)
	}
}
