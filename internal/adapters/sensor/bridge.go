package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const (
	bridgeReadLimit = 64 * 1024
	bridgeReadWait  = 5 * time.Second
	bridgeWriteWait = 5 * time.Second
)

// Bridge is a Source fed by an external sensor process over a websocket.
// Mount it as an http.Handler; each message is one JSON Frame.
type Bridge struct {
	mu      sync.RWMutex
	deliver func(skeleton.Frame)
	conns   map[string]*websocket.Conn
	closed  bool

	now      func() time.Time
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewBridge creates a bridge source.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		conns: make(map[string]*websocket.Conn),
		now:   time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bridgeReadLimit,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Named("sensor.bridge")
	}
	return b
}

// Start begins forwarding frames from connected publishers to deliver.
func (b *Bridge) Start(ctx context.Context, deliver func(skeleton.Frame)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deliver != nil {
		return ErrAlreadyStarted
	}
	b.deliver = deliver
	metrics.UpdateSensorAvailable(true)
	b.logger.Info(ctx, "sensor bridge listening")
	return nil
}

// Publishers returns the number of connected publishers.
func (b *Bridge) Publishers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// ServeHTTP accepts one publisher connection and reads frames until it goes
// away. Malformed messages are counted and skipped.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	ready := b.deliver != nil && !b.closed
	b.mu.RUnlock()
	if !ready {
		http.Error(w, ErrNotStarted.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn(r.Context(), "sensor upgrade failed", logger.Error(err))
		return
	}
	id := uuid.NewString()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.conns[id] = conn
	deliver := b.deliver
	b.mu.Unlock()

	ctx := r.Context()
	log := b.logger.Named(id)
	log.Info(ctx, "sensor publisher connected", logger.String("remote", r.RemoteAddr))
	defer func() {
		b.mu.Lock()
		delete(b.conns, id)
		b.mu.Unlock()
		_ = conn.Close()
		log.Info(ctx, "sensor publisher disconnected")
	}()

	conn.SetReadLimit(bridgeReadLimit)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(bridgeReadWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn(ctx, "sensor read failed", logger.Error(err))
			}
			return
		}

		var f skeleton.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			metrics.RecordFrameDecodeError()
			log.Debug(ctx, "dropping malformed frame", logger.Error(err))
			continue
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = b.now()
		}
		deliver(f)
	}
}

// Close disconnects every publisher and stops delivering frames.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, conn := range b.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(bridgeWriteWait))
		_ = conn.Close()
		delete(b.conns, id)
	}
	return nil
}

// Publisher streams frames to a Bridge.
type Publisher struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects a publisher to the bridge at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Publisher, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial sensor bridge %s: %w", url, err)
	}
	return &Publisher{conn: conn}, nil
}

// Publish sends one frame.
func (p *Publisher) Publish(ctx context.Context, f skeleton.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	deadline := time.Now().Add(bridgeWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("publish frame %d: %w", f.Seq, err)
	}
	return nil
}

// Close says goodbye and closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(bridgeWriteWait))
	return p.conn.Close()
}
