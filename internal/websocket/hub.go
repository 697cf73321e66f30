package websocket

import (
	"log"
)

// Notification is a push payload addressed to a single connected user.
type Notification struct {
	ReceiverID uint
	Payload    []byte
}

// Hub maintains the set of active clients and routes notifications to
// them. One connection per user id; a new connection replaces the old one.
type Hub struct {
	clients map[uint]*Client

	register   chan *Client
	unregister chan *Client

	// Notifications addressed to a specific user.
	direct chan *Notification
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uint]*Client),
		direct:     make(chan *Notification, 256),
	}
}

// Deliver queues a notification for direct delivery. Non-blocking so a
// Kafka consumer calling in never stalls behind a slow hub.
func (h *Hub) Deliver(n *Notification) {
	select {
	case h.direct <- n:
	default:
		log.Printf("Warning: hub direct channel is full, dropping notification for user %d", n.ReceiverID)
	}
}

// Run starts the hub loop. It owns the clients map; all access goes
// through the channels.
func (h *Hub) Run() {
	log.Println("WebSocket hub started.")
	for {
		select {
		case client := <-h.register:
			if existing, ok := h.clients[client.UserID]; ok {
				log.Printf("User %d reconnected, replacing previous connection.", client.UserID)
				close(existing.send)
			}
			h.clients[client.UserID] = client
			log.Printf("Client registered: user %d", client.UserID)

		case client := <-h.unregister:
			// Only drop the client if it is still the registered connection;
			// a reconnect may already have replaced it.
			if stored, ok := h.clients[client.UserID]; ok && stored == client {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("Client unregistered: user %d", client.UserID)
			}

		case n := <-h.direct:
			client, ok := h.clients[n.ReceiverID]
			if !ok {
				// User is not connected to this instance; the match list
				// API is the source of truth, push is best effort.
				continue
			}
			select {
			case client.send <- n.Payload:
			default:
				log.Printf("Warning: send channel for user %d is full, dropping client.", n.ReceiverID)
				close(client.send)
				delete(h.clients, n.ReceiverID)
			}
		}
	}
}
