// Package feed streams public order events to websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"FortuneBox/internal/logger"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Message is one frame on the feed.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	conn        *websocket.Conn
	send        chan []byte
	id          string
	connectedAt time.Time
}

// Hub tracks connected clients and fans out published messages.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, buffer),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run serves register, unregister and broadcast until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("feed client connected", zap.String("client_id", c.id), zap.Int("total_clients", total))

			hello, _ := json.Marshal(Message{Type: "connected", Data: json.RawMessage(`{"client_id":"` + c.id + `"}`)})
			select {
			case c.send <- hello:
			default:
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			logger.Info("feed client disconnected", zap.String("client_id", c.id), zap.Int("remaining_clients", remaining))

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("marshal feed message", zap.Error(err))
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow consumer.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a message for every connected client. It never blocks; a
// full queue drops the message.
func (h *Hub) Publish(msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("marshal feed payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- Message{Type: msgType, Data: raw}:
	default:
		logger.Warn("feed broadcast channel full, message dropped", zap.String("type", msgType))
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("feed upgrade failed", zap.Error(err))
		return
	}

	id := r.URL.Query().Get("client_id")
	if id == "" {
		if id, err = gonanoid.New(12); err != nil {
			id = "anon"
		}
	}
	c := &client{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		connectedAt: time.Now(),
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("feed read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
