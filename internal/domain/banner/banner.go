// Package banner shows short-lived full-screen notices over the scene.
package banner

import (
	"sync"
	"time"

	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/render"
)

// DefaultTTL is how long a notice stays up unless told otherwise.
const DefaultTTL = 4 * time.Second

// Banner text height relative to the screen height.
const fontFraction = 0.1

// Notice is one banner message.
type Notice struct {
	Text   string
	Color  render.Color
	Shown  time.Time
	TTL    time.Duration
	Sticky bool
	Faded  bool
}

func (n Notice) expired(now time.Time) bool {
	return !n.Sticky && now.Sub(n.Shown) >= n.TTL
}

// Board holds the current notice. A new notice replaces the old one.
type Board struct {
	mu      sync.Mutex
	current *Notice
}

// Show displays text until ttl has passed. A non-positive ttl keeps the
// notice up until Clear.
func (b *Board) Show(text string, now time.Time, ttl time.Duration, color render.Color) {
	n := &Notice{Text: text, Color: color, Shown: now, TTL: ttl, Faded: ttl > 0}
	if ttl <= 0 {
		n.Sticky = true
	}
	b.mu.Lock()
	b.current = n
	b.mu.Unlock()
}

// Clear removes the current notice.
func (b *Board) Clear() {
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
}

// Current returns the visible notice, if any.
func (b *Board) Current(now time.Time) (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	if b.current.expired(now) {
		b.current = nil
		return Notice{}, false
	}
	return *b.current, true
}

// Primitives draws the visible notice centred on screen. Timed notices fade
// out linearly over their lifetime.
func (b *Board) Primitives(now time.Time, screen geom.Rect) []render.Primitive {
	n, ok := b.Current(now)
	if !ok {
		return nil
	}
	c := n.Color
	if n.Faded {
		left := min(max(1-float64(now.Sub(n.Shown))/float64(n.TTL), 0), 1)
		c.A = uint8(float64(c.A) * left)
	}
	return []render.Primitive{render.Text(n.Text, screen.Center(), screen.Height*fontFraction, c)}
}
