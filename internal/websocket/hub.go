package websocket

import (
	"log/slog"
	"sync"

	"github.com/princekumarofficial/winsome-service/internal/types"
)

// Hub maintains the set of active clients and fans events out to them.
// Each user has at most one connection, mirroring the one-session-per-user
// rule of the social store.
type Hub struct {
	// Registered clients mapped by username
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	broadcast chan *BroadcastMessage
}

// BroadcastMessage represents an event to deliver to specific users.
type BroadcastMessage struct {
	Usernames []string     `json:"usernames"`
	Event     *types.Event `json:"event"`
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A reconnect replaces the previous connection for the user.
			if existing, ok := h.clients[client.username]; ok {
				close(existing.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("username", client.username))
			}
			h.clients[client.username] = client
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("username", client.username))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.username]; ok {
				delete(h.clients, client.username)
				close(client.send)
				slog.Info("WebSocket client disconnected", slog.String("username", client.username))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message.Usernames, message.Event)
		}
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastToUsers sends an event to specific users
func (h *Hub) BroadcastToUsers(usernames []string, event *types.Event) {
	message := &BroadcastMessage{
		Usernames: usernames,
		Event:     event,
	}

	select {
	case h.broadcast <- message:
	default:
		slog.Warn("Broadcast channel is full, dropping message")
	}
}

// BroadcastToUser sends an event to a single user
func (h *Hub) BroadcastToUser(username string, event *types.Event) {
	h.BroadcastToUsers([]string{username}, event)
}

func (h *Hub) deliver(usernames []string, event *types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, username := range usernames {
		if client, ok := h.clients[username]; ok {
			err := client.SendEvent(event)
			if err != nil {
				slog.Error("Failed to send event to client",
					slog.String("username", username),
					slog.String("error", err.Error()))
				go func(c *Client) {
					h.unregister <- c
				}(client)
			}
		}
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[username]
	return exists
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
