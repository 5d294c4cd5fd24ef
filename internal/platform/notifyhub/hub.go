// Package notifyhub pushes playback notifications to websocket subscribers.
// A new subscriber first receives the notification currently shown, if any.
package notifyhub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/otis-tran/demo-service/internal/service/playback"
)

const (
	writeWait  = 4 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message types
const (
	MessageShow   = "show"
	MessageRemove = "remove"
)

// Message is the JSON frame sent to subscribers.
type Message struct {
	Type           string                 `json:"type"`
	NotificationID int                    `json:"notification_id"`
	Notification   *playback.Notification `json:"notification,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub implements playback.Notifier over websockets.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	current *playback.Notification
	closed  bool
}

// New creates an empty Hub
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "notify_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Show broadcasts n and remembers it for new subscribers.
func (h *Hub) Show(ctx context.Context, n playback.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = &n
	h.broadcast(Message{Type: MessageShow, NotificationID: n.ID, Notification: &n})
	return nil
}

// Remove broadcasts the removal of notification id.
func (h *Hub) Remove(ctx context.Context, id int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil && h.current.ID == id {
		h.current = nil
	}
	h.broadcast(Message{Type: MessageRemove, NotificationID: id})
	return nil
}

// broadcast queues msg for every client. Clients that cannot keep up are
// disconnected. Callers must hold h.mu.
func (h *Hub) broadcast(msg Message) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow subscriber", "remote_addr", c.conn.RemoteAddr().String())
			h.drop(c)
		}
	}
}

// drop removes c and closes its send channel. Callers must hold h.mu.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the request and streams notifications until the
// client disconnects or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Message, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.current != nil {
		n := *h.current
		c.send <- Message{Type: MessageShow, NotificationID: n.ID, Notification: &n}
	}
	h.mu.Unlock()

	h.logger.Debug("subscriber connected", "remote_addr", conn.RemoteAddr().String())

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards client frames and detects disconnects.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		h.drop(c)
		h.mu.Unlock()
		h.logger.Debug("subscriber disconnected", "remote_addr", c.conn.RemoteAddr().String())
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop sends queued messages and periodic pings. It owns all writes to
// the connection.
func (h *Hub) writeLoop(c *client) {
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
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
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

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.drop(c)
	}
}

var _ playback.Notifier = (*Hub)(nil)
