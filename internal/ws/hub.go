// Package ws pushes server events to connected websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pliu/chatroom/internal/logging"
)

const (
	EventChatCreated    = "chat:created"
	EventMessageCreated = "message:created"
)

// Event is the frame written to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type delivery struct {
	data       []byte
	recipients []int
}

type Hub struct {
	// Registered clients. Owned by Run.
	clients map[*Client]bool

	// Outbound events.
	publish chan delivery

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu        sync.RWMutex
	connected map[int]int // user id -> open connections

	logger logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		publish:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		connected:  make(map[int]int),
		logger:     logger,
	}
}

// Run serves registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.mu.Lock()
			h.connected[client.userID]++
			h.mu.Unlock()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}
		case d := <-h.publish:
			h.deliver(d)
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)

	h.mu.Lock()
	if h.connected[client.userID]--; h.connected[client.userID] <= 0 {
		delete(h.connected, client.userID)
	}
	h.mu.Unlock()
}

func (h *Hub) deliver(d delivery) {
	want := make(map[int]struct{}, len(d.recipients))
	for _, id := range d.recipients {
		want[id] = struct{}{}
	}
	for client := range h.clients {
		if _, ok := want[client.userID]; !ok {
			continue
		}
		select {
		case client.send <- d.data:
		default:
			// slow consumer
			h.remove(client)
		}
	}
}

// Publish queues an event for the given users. It never blocks; when the
// queue is full the event is dropped and logged. A nil hub is a no-op.
func (h *Hub) Publish(ctx context.Context, eventType string, payload any, recipients []int) {
	if h == nil || len(recipients) == 0 {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.Error(ctx, "marshal event", "type", eventType, "error", err)
		return
	}
	select {
	case h.publish <- delivery{data: data, recipients: recipients}:
	default:
		h.logger.Warn(ctx, "event dropped, hub queue full", "type", eventType)
	}
}

// join and leave return false once Run has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// IsConnected reports whether the user has at least one open connection.
// A nil hub reports nobody.
func (h *Hub) IsConnected(userID int) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connected[userID] > 0
}
