// Package chat implements the real-time private messaging path: per-user
// delivery groups, the persist-then-broadcast relay and bearer-token
// authentication for incoming connections.
package chat

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

// sendBuffer bounds the per-connection outbound queue. A connection that
// cannot drain this many frames is dropped rather than allowed to block
// delivery to others.
const sendBuffer = 256

// Client is one WebSocket connection bound to an authenticated user.
type Client struct {
	UserID   int64
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(userID int64, username string, conn *websocket.Conn) *Client {
	return &Client{
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
	}
}

// Hub maintains one delivery group per user ID. A user's group holds all of
// their active connections, so a sender's other devices see their own echo.
type Hub struct {
	mu     sync.Mutex
	groups map[int64]map[*Client]bool
}

// GlobalHub is the process-wide hub instance wired at startup.
var GlobalHub *Hub

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{groups: make(map[int64]map[*Client]bool)}
}

// Register subscribes the client to its user's delivery group.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	group, ok := h.groups[client.UserID]
	if !ok {
		group = make(map[*Client]bool)
		h.groups[client.UserID] = group
	}
	group[client] = true
	h.mu.Unlock()

	log.Debug().Int64("user_id", client.UserID).Msg("chat client registered")
}

// Unregister removes the client from its group. Idempotent: unregistering a
// client that was never (or is no longer) subscribed is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[client.UserID]
	if !ok {
		return
	}
	if _, ok := group[client]; !ok {
		return
	}
	delete(group, client)
	close(client.Send)
	if len(group) == 0 {
		delete(h.groups, client.UserID)
	}

	log.Debug().Int64("user_id", client.UserID).Msg("chat client unregistered")
}

// Broadcast delivers payload to every connection in the user's group.
// Best-effort: a connection whose send buffer is full is dropped so one slow
// subscriber cannot stall the rest.
func (h *Hub) Broadcast(userID int64, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.groups[userID] {
		select {
		case client.Send <- payload:
		default:
			log.Warn().Int64("user_id", userID).Msg("chat client send buffer full, dropping connection")
			delete(h.groups[userID], client)
			close(client.Send)
		}
	}
	if len(h.groups[userID]) == 0 {
		delete(h.groups, userID)
	}
}

// GroupSize reports how many connections a user's group currently holds.
func (h *Hub) GroupSize(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[userID])
}
