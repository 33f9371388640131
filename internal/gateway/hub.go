// Package gateway is the WebSocket/REST surface of the simulation server: it
// upgrades connections, routes typed client messages into session entry
// points, and fans the per-tick snapshots out to every connected client.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"btcsim/internal/metrics"
	"btcsim/internal/model"
	"btcsim/internal/sim"
)

// AuthConfig is the admin credential check: a static PIN, a TOTP secret, or
// both. Empty values disable that method.
type AuthConfig struct {
	AdminPIN   string
	TOTPSecret string
}

// Hub manages WebSocket clients and tick fan-out.
type Hub struct {
	session   *sim.Session
	auth      AuthConfig
	publisher model.SnapshotPublisher // optional
	met       *metrics.Metrics        // optional

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub over a session.
func NewHub(session *sim.Session, auth AuthConfig, publisher model.SnapshotPublisher, met *metrics.Metrics) *Hub {
	return &Hub{
		session:   session,
		auth:      auth,
		publisher: publisher,
		met:       met,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
	}
}

// HandleWS upgrades an HTTP connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade failed: %v", err)
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	if h.met != nil {
		h.met.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()

	client.sendMarket()
}

// RemoveClient unregisters a client and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	if id := c.PlayerID(); id != "" {
		h.session.ReleasePlayer(id)
	}
	if h.met != nil {
		h.met.WSClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastTick pushes the post-tick state to every client: the shared
// market view to all, the per-player view to joined clients, the admin view
// to authenticated admins. Also mirrors the snapshots to the Redis publisher.
func (h *Hub) BroadcastTick(ctx context.Context) {
	market := h.session.MarketSnapshot()
	marketMsg, err := json.Marshal(envelope{Type: "market", Data: market})
	if err != nil {
		log.Printf("[gateway] market snapshot marshal: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(marketMsg)
		if id := c.PlayerID(); id != "" {
			c.sendPlayer(id)
		}
		if c.IsAdmin() {
			c.sendAdmin()
		}
	}
	if h.met != nil {
		h.met.BroadcastClients.Observe(float64(len(clients)))
	}

	if h.publisher != nil {
		if payload, err := json.Marshal(market); err == nil {
			h.publisher.PublishMarket(ctx, payload)
		}
		h.publisher.UpdateLeaderboard(ctx, h.session.LeaderboardSnapshot())
	}
}

// envelope is the server-to-client message wrapper.
type envelope struct {
	Type  string      `json:"type"`
	ReqID string      `json:"reqId,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}
