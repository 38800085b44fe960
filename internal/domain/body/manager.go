package body

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/bodytrack/internal/domain/estimator"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// DefaultStaleAfter is how long a body may go unreported before it is gone.
const DefaultStaleAfter = 500 * time.Millisecond

// Playfield placement: bodies occupy the lower part of the surface.
const (
	playfieldTop    = 0.2
	playfieldHeight = 0.75
)

// Predicate selects bodies for Count.
type Predicate func(*Body) bool

// Alive matches bodies that are live and rendered.
func Alive(b *Body) bool { return b.Alive }

// Any matches every body the manager holds.
func Any(*Body) bool { return true }

// Manager is the mutex-guarded set of bodies keyed by sensor slot. The
// sensor side writes through OnFrame; the render side reads through
// Snapshot, Sweep and Count.
type Manager struct {
	mu        sync.Mutex
	bodies    map[int]*Body
	bounds    geom.Rect
	nextColor int

	staleAfter time.Duration
	estimator  *estimator.Estimator
	now        func() time.Time
	logger     logger.Logger
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		bodies:     make(map[int]*Body),
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.estimator == nil {
		m.estimator = estimator.New()
	}
	if m.logger == nil {
		m.logger = logger.Named("bodies")
	}
	return m
}

// Resize recomputes the playfield bounds from the surface size and rebases
// every body onto them.
func (m *Manager) Resize(width, height float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bounds = geom.Rect{X: 0, Y: height * playfieldTop, Width: width, Height: height * playfieldHeight}
	for _, b := range m.bodies {
		b.setBounds(m.bounds)
	}
}

// Bounds returns the current playfield bounds.
func (m *Manager) Bounds() geom.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

// OnFrame applies one sensor frame. Only tracked slots are considered;
// untracked slots are left to age out through Sweep.
func (m *Manager) OnFrame(ctx context.Context, f skeleton.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, raw := range f.Bodies {
		if raw.State != skeleton.Tracked {
			continue
		}
		b, ok := m.bodies[raw.Slot]
		if !ok {
			b = newBody(raw.Slot, NewReferenceFrame(m.bounds), PaletteAt(m.nextColor), now)
			m.nextColor = (m.nextColor + 1) % PaletteSize
			m.bodies[raw.Slot] = b
			metrics.RecordBodyCreated()
			m.logger.Debug(ctx, "body created",
				logger.Int("slot", raw.Slot),
				logger.String("id", b.ID.String()),
			)
		}
		b.apply(raw, now)
	}
}

// Sweep marks every body unreported for the staleness window as dead and
// removes it. It returns how many bodies were removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale := make([]int, 0, len(m.bodies))
	for slot, b := range m.bodies {
		if now.Sub(b.LastUpdated) >= m.staleAfter {
			b.Alive = false
			stale = append(stale, slot)
		}
	}
	for _, slot := range stale {
		b := m.bodies[slot]
		delete(m.bodies, slot)
		m.logger.Debug(ctx, "body removed",
			logger.Int("slot", slot),
			logger.String("id", b.ID.String()),
			logger.Duration("silent", now.Sub(b.LastUpdated)),
		)
	}
	if len(stale) > 0 {
		metrics.RecordBodiesRemoved(len(stale))
	}
	return len(stale)
}

// Count returns how many bodies satisfy p.
func (m *Manager) Count(p Predicate) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, b := range m.bodies {
		if p(b) {
			n++
		}
	}
	return n
}

// Get returns a copy of the body in slot, without its tracks.
func (m *Manager) Get(slot int) (Body, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bodies[slot]
	if !ok {
		return Body{}, false
	}
	return Body{ID: b.ID, Slot: b.Slot, Alive: b.Alive, LastUpdated: b.LastUpdated, Colors: b.Colors, frame: b.frame}, true
}

// Snapshot estimates every live body at the given instant, ordered by slot.
// Bodies past the staleness window are skipped even before Sweep runs.
func (m *Manager) Snapshot(at time.Time) []View {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]View, 0, len(m.bodies))
	for _, b := range m.bodies {
		if !b.Alive || at.Sub(b.LastUpdated) >= m.staleAfter {
			continue
		}
		views = append(views, b.view(m.estimator, at))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Slot < views[j].Slot })
	return views
}
