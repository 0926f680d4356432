package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/pkg/logger"
)

const (
	// Rate limiting: maximum client messages per second
	maxMessagesPerSecond = 10

	sendBufferSize = 64
)

// ClientMessage is sent by consoles to narrow the events they receive.
// An empty Events list restores the full stream.
type ClientMessage struct {
	Type   string                   `json:"type"` // subscribe
	Events []model.CatalogEventType `json:"events"`
}

// Client is one connected admin console.
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        string
	Send          chan []byte
	filter        map[model.CatalogEventType]bool
	mu            sync.RWMutex
	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, userID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// wants reports whether the client subscribed to eventType.
func (c *Client) wants(eventType model.CatalogEventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filter) == 0 || c.filter[eventType]
}

type broadcastMessage struct {
	eventType model.CatalogEventType
	payload   []byte
}

// Hub fans catalog events out to every connected console.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	done       chan struct{}

	mu sync.RWMutex

	// stateMu orders Register against shutdown.
	stateMu sync.RWMutex
	stopped bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan broadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. Once it
// returns, every client's Send channel is closed and Register/Unregister no
// longer block.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id":            client.UserID,
				"remaining_sessions": remaining,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.wants(message.eventType) {
					continue
				}
				select {
				case client.Send <- message.payload:
				default:
					// slow consumer
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": client.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PublishCatalogEvent queues event for every subscribed client. Events are
// dropped when the hub is saturated.
func (h *Hub) PublishCatalogEvent(event model.CatalogEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal catalog event", err, map[string]interface{}{
			"type": event.Type,
		})
		return
	}

	select {
	case h.broadcast <- broadcastMessage{eventType: event.Type, payload: data}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"type":       event.Type,
			"product_id": event.ProductID,
		})
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.stateMu.Lock()
	h.stopped = true
	h.stateMu.Unlock()

	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
	h.mu.Unlock()

	for {
		select {
		case client := <-h.register:
			close(client.Send)
		case <-h.unregister:
		default:
			logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// Register adds client to the hub. After the hub stopped, client.Send is
// closed instead so its write pump exits.
func (h *Hub) Register(client *Client) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()

	if h.stopped {
		close(client.Send)
		return
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected consoles.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleClientMessage applies a subscription change sent by the client.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type != "subscribe" {
		return
	}

	filter := make(map[model.CatalogEventType]bool, len(msg.Events))
	for _, eventType := range msg.Events {
		filter[eventType] = true
	}
	client.mu.Lock()
	client.filter = filter
	client.mu.Unlock()

	logger.Debug("Client subscription updated", map[string]interface{}{
		"user_id": client.UserID,
		"events":  msg.Events,
	})
}
