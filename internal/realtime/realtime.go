// Package realtime pushes business-object collection snapshots to
// WebSocket clients. Each entity is a topic; whenever a store mutation
// publishes a new snapshot, subscribed clients receive the full collection.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pulsedigest/core/internal/schema"
)

// MessageType discriminates hub messages.
type MessageType string

const (
	MessageTypeSnapshot  MessageType = "snapshot"
	MessageTypeSubscribe MessageType = "subscribe"
	MessageTypeError     MessageType = "error"
)

// Message is the wire envelope sent to clients.
type Message struct {
	Type      MessageType `json:"type"`
	Entity    string      `json:"entity,omitempty"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ClientID  string      `json:"client_id,omitempty"`
}

// subscriptionRequest is what clients send to manage their topics.
type subscriptionRequest struct {
	Type     string   `json:"type"`
	Entities []string `json:"entities"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO(origin): restrict once the dashboard origin list is final.
		return true
	},
}

// Hub maintains the set of connected clients and fans snapshots out to them.
type Hub struct {
	logger *zap.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]bool
}

type envelope struct {
	entity string
	data   []byte
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	entities map[string]bool
}

// NewHub builds a hub; call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, sendBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Close done first so client pumps and late upgrades stop
			// targeting the register channels nobody reads anymore.
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Debug("realtime client connected", zap.String("client", c.id))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("realtime client disconnected", zap.String("client", c.id))

		case env := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if !c.subscribed(env.entity) {
					continue
				}
				select {
				case c.send <- env.data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Watch pumps a collection subscription into the hub until ctx is
// cancelled. Wire it to Collection.Subscribe per entity store.
func (h *Hub) Watch(ctx context.Context, entity string, snapshots <-chan []schema.Record, cancel func()) {
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				h.BroadcastSnapshot(entity, snap)
			}
		}
	}()
}

// BroadcastSnapshot sends the entity's current collection to subscribers.
func (h *Hub) BroadcastSnapshot(entity string, records []schema.Record) {
	data, err := json.Marshal(Message{
		Type:      MessageTypeSnapshot,
		Entity:    entity,
		Payload:   records,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.Error("encoding snapshot failed",
			zap.String("entity", entity), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{entity: entity, data: data}:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping snapshot",
			zap.String("entity", entity))
	}
}

// ConnectedClients returns the number of open connections.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and services the connection.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to upgrade connection"})
		return
	}

	cl := &client{
		id:       fmt.Sprintf("client_%d", time.Now().UnixNano()),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		entities: make(map[string]bool),
	}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}

func (c *client) subscribed(entity string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entities[entity]
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed",
					zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		var req subscriptionRequest
		if err := json.Unmarshal(raw, &req); err == nil {
			c.handleSubscription(req)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handleSubscription(req subscriptionRequest) {
	c.mu.Lock()
	switch req.Type {
	case "subscribe":
		for _, entity := range req.Entities {
			c.entities[entity] = true
		}
	case "unsubscribe":
		for _, entity := range req.Entities {
			delete(c.entities, entity)
		}
	}
	c.mu.Unlock()

	ack, err := json.Marshal(Message{
		Type:      MessageTypeSubscribe,
		Payload:   fmt.Sprintf("subscription updated: %s", req.Type),
		Timestamp: time.Now(),
		ClientID:  c.id,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- ack:
	default:
	}
}
