package display

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/render"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 8
)

// Message types sent by display clients.
const msgResize = "resize"

// ResizeFunc is told the new surface size reported by a client.
type ResizeFunc func(ctx context.Context, width, height float64)

type clientMessage struct {
	Type   string  `json:"type"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub is a render.Sink that broadcasts each presented scene as JSON to
// every connected websocket client. Slow clients are dropped instead of
// holding up the render thread.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	pending  []render.Primitive
	last     render.Scene
	lastJSON []byte
	seq      uint64
	width    float64
	height   float64
	closed   bool

	onResize ResizeFunc
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHub creates a Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("display")
	}
	return h
}

// Measure approximates label extents with a monospace font.
func (h *Hub) Measure(text string, fontSize float64) geom.Size {
	return render.MonospaceMeasure(text, fontSize)
}

// Clear starts a new scene.
func (h *Hub) Clear() {
	h.mu.Lock()
	h.pending = h.pending[:0]
	h.mu.Unlock()
}

// Draw appends primitives to the scene being built.
func (h *Hub) Draw(p ...render.Primitive) {
	h.mu.Lock()
	h.pending = append(h.pending, p...)
	h.mu.Unlock()
}

// Present publishes the scene built since Clear.
func (h *Hub) Present(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return render.ErrSinkClosed
	}
	h.seq++
	scene := render.Scene{
		Seq:        h.seq,
		Width:      h.width,
		Height:     h.height,
		Primitives: append([]render.Primitive(nil), h.pending...),
	}
	data, err := json.Marshal(scene)
	if err != nil {
		h.mu.Unlock()
		metrics.RecordRenderError("encode")
		return fmt.Errorf("encode scene: %w", err)
	}
	h.last = scene
	h.lastJSON = data

	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.removeLocked(c)
	}
	clients := len(h.clients)
	h.mu.Unlock()

	for range slow {
		h.logger.Warn(ctx, "dropped slow display client")
	}
	metrics.UpdateRenderPrimitives(len(scene.Primitives))
	metrics.UpdateRenderClients(clients)
	return nil
}

// Last returns the most recently presented scene.
func (h *Hub) Last() render.Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// LastJSON returns the encoded form of Last, or nil before the first Present.
func (h *Hub) LastJSON() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastJSON
}

// Size returns the surface size last reported by a client.
func (h *Hub) Size() (width, height float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.width, h.height
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams scenes until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordRenderError("upgrade")
		h.logger.Warn(r.Context(), "display upgrade failed", logger.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.lastJSON != nil {
		c.send <- h.lastJSON
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.UpdateRenderClients(count)
	h.logger.Info(r.Context(), "display client connected",
		logger.String("remote", r.RemoteAddr),
		logger.Int("clients", count),
	)

	go c.writePump()
	c.readPump(r.Context())
}

// Close disconnects every client. Present fails afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	metrics.UpdateRenderClients(0)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	count := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateRenderClients(count)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) resize(ctx context.Context, width, height float64) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidResize
	}
	h.mu.Lock()
	h.width, h.height = width, height
	h.mu.Unlock()

	if h.onResize != nil {
		h.onResize(ctx, width, height)
	}
	return nil
}

// readPump handles client messages and detects disconnection.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug(ctx, "display client read error", logger.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug(ctx, "ignoring malformed display message", logger.Error(err))
			continue
		}
		switch msg.Type {
		case msgResize:
			if err := c.hub.resize(ctx, msg.Width, msg.Height); err != nil {
				c.hub.logger.Debug(ctx, "ignoring resize", logger.Error(err))
			}
		default:
			c.hub.logger.Debug(ctx, "ignoring display message", logger.String("type", msg.Type))
		}
	}
}

// writePump is the only writer on the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
