package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/streakforge/streakforge/internal/logging"
	"github.com/streakforge/streakforge/internal/notify"
)

// WebSocketMessage is the wire envelope for hub broadcasts
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketHub manages connected websocket clients
type WebSocketHub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan WebSocketMessage
	mu         sync.RWMutex
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan WebSocketMessage
}

// NewWebSocketHub creates a new hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan WebSocketMessage, 64),
	}
}

// Run processes hub events until the process exits
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client, drop the message
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for all connected clients
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn("WebSocket broadcast queue full, dropping %s message", msg.Type)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the connection and attaches it to the hub
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan WebSocketMessage, 16),
	}
	s.wsHub.register <- client

	go client.writeLoop()
	go client.readLoop(s.wsHub)
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readLoop drains client frames so pings are answered; the feed is one-way.
func (c *wsClient) readLoop(hub *WebSocketHub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// hubSubscriber adapts the hub to the notify.Subscriber interface
type hubSubscriber struct {
	id  string
	hub *WebSocketHub
}

func newHubSubscriber(hub *WebSocketHub) *hubSubscriber {
	return &hubSubscriber{
		id:  uuid.New().String(),
		hub: hub,
	}
}

func (s *hubSubscriber) Send(event notify.Event) error {
	s.hub.Broadcast(WebSocketMessage{
		Type:      "celebration",
		Data:      event,
		Timestamp: event.At,
	})
	return nil
}

func (s *hubSubscriber) ID() string { return s.id }
