package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains active WebSocket connections and delivers events to a
// specific user (chat messages, booking status changes).
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	// Outbound events addressed to one user
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message represents an event to deliver to a specific user
type Message struct {
	UserID string
	Data   interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = client
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: %s (%s), total %d", client.UserID, client.UserRole, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("🔴 [WEBSOCKET] Client disconnected: %s, remaining %d", client.UserID, h.ClientCount())

		case message := <-h.broadcast:
			h.mu.RLock()
			client, ok := h.clients[message.UserID]
			h.mu.RUnlock()
			if !ok {
				continue
			}

			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ [WEBSOCKET] Failed to marshal message: %v", err)
				continue
			}

			select {
			case client.send <- data:
			default:
				// Slow consumer, drop the connection
				h.mu.Lock()
				delete(h.clients, client.UserID)
				close(client.send)
				h.mu.Unlock()
			}
		}
	}
}

// SendToUser queues an event for delivery to a connected user. Returns
// false if the user has no open socket; callers fall back to FCM.
func (h *Hub) SendToUser(userID string, data interface{}) bool {
	h.mu.RLock()
	_, connected := h.clients[userID]
	h.mu.RUnlock()
	if !connected {
		return false
	}

	h.broadcast <- &Message{UserID: userID, Data: data}
	return true
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
