// Package live pushes post updates to websocket subscribers once their
// links have been embedded.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"Threadmark/internal/core/posts"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sendBuffer   = 32
)

// Message is sent to subscribers for every changed post.
type Message struct {
	Type string         `json:"type"`
	Post posts.Snapshot `json:"post"`
}

// filter narrows a subscription to one board and optionally one thread.
type filter struct {
	board    string
	threadNo int64
}

func (f filter) accepts(p *posts.Post) bool {
	if f.board != "" && f.board != p.Board {
		return false
	}
	return f.threadNo == 0 || f.threadNo == p.ThreadNo
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	filter filter
}

// Hub fans post-changed events out to websocket clients. It implements
// embeds.Notifier.
type Hub struct {
	clients  map[string]*client
	upgrader websocket.Upgrader
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(r *http.Request) bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:  make(map[string]*client),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logger,
	}
}

// HandleLive handles GET /api/v1/live?board=b&thread=n
func (h *Hub) HandleLive(w http.ResponseWriter, r *http.Request) {
	f := filter{board: r.URL.Query().Get("board")}
	if v := r.URL.Query().Get("thread"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid thread", http.StatusBadRequest)
			return
		}
		f.threadNo = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("[LIVE] Failed to upgrade websocket", "error", err)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		filter: f,
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("[LIVE] Client connected", "client", c.id, "board", f.board, "thread", f.threadNo)

	go h.writeLoop(c)
	h.readLoop(c)
}

// PostChanged broadcasts the post to every matching client. Clients whose
// buffers are full are dropped rather than blocking the embed run.
func (h *Hub) PostChanged(post *posts.Post) {
	data, err := json.Marshal(Message{Type: "post_changed", Post: post.Snapshot()})
	if err != nil {
		h.logger.Error("[LIVE] Failed to encode post", "post", post.Key.String(), "error", err)
		return
	}

	h.mu.RLock()
	var slow []*client
	for _, c := range h.clients {
		if !c.filter.accepts(post) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("[LIVE] Dropping slow client", "client", c.id)
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

// remove unregisters c and closes its send channel; the write loop then
// closes the connection. Safe to call more than once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()
	h.logger.Debug("[LIVE] Client disconnected", "client", c.id)
}

// readLoop discards client messages and keeps the read deadline alive
// through pongs. It returns when the connection fails.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("[LIVE] Client read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
