package diagnostics

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/edgeflow/modgate/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WireMessage is one record as shipped to a websocket client.
type WireMessage struct {
	Timestamp int64                  `json:"timestamp"`
	Text      string                 `json:"text"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Client is one connected diagnostics viewer.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan WireMessage
}

// Hub fans published diagnostic records out to connected websocket clients
// via a register/unregister/broadcast goroutine loop.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan WireMessage
}

// NewHub creates a Hub. Call Run in its own goroutine and Attach(sink) to
// wire it to a Sink.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan WireMessage, 256),
	}
}

// Attach subscribes the hub to a Sink so every published record is
// broadcast to connected clients.
func (h *Hub) Attach(sink *Sink) func() {
	return sink.Subscribe(func(ts int64, text string, ctx map[string]interface{}) {
		h.Broadcast(WireMessage{Timestamp: ts, Text: text, Context: ctx})
	})
}

// Run drives the hub's event loop. Call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer: drop rather than block the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for delivery to every connected client.
func (h *Hub) Broadcast(msg WireMessage) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Get().Warn("diagnostics broadcast channel full; dropping message")
	}
}

// ClientCount reports how many websocket clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket is the gofiber/websocket/v2 handler for the diagnostics
// stream endpoint.
func (h *Hub) HandleWebSocket(conn *websocket.Conn) {
	client := &Client{
		id:   fmt.Sprintf("%p-%d", conn, time.Now().UnixNano()),
		conn: conn,
		send: make(chan WireMessage, 32),
	}
	h.register <- client

	done := make(chan struct{})
	go client.writePump(done)
	client.readPump()
	close(done)
	h.unregister <- client
}

func (c *Client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
