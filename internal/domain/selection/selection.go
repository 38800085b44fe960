// Package selection runs the hit-test between the designated hand and the
// on-screen text targets.
package selection

import (
	"context"
	"sync"
	"time"

	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/render"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Target is a labelled rectangle that toggles when the hand enters it.
type Target struct {
	Name     string       `json:"name"`
	Size     float64      `json:"size"`
	Center   geom.Point   `json:"center"`
	Bounds   geom.Rect    `json:"bounds"`
	Selected bool         `json:"selected"`
	Color    render.Color `json:"color"`
}

// Change describes one selection toggle.
type Change struct {
	Target Target
	At     time.Time
}

// Engine owns the targets. It is driven from the render tick.
type Engine struct {
	mu       sync.Mutex
	targets  []*Target
	measurer render.Measurer
	onChange func(context.Context, Change)
	logger   logger.Logger
}

// New creates an Engine measuring labels with m.
func New(m render.Measurer, opts ...Option) *Engine {
	e := &Engine{measurer: m}
	for _, opt := range opts {
		opt(e)
	}
	if e.measurer == nil {
		e.measurer = measureFunc(render.MonospaceMeasure)
	}
	if e.logger == nil {
		e.logger = logger.Named("selection")
	}
	return e
}

// Register adds an unselected target.
func (e *Engine) Register(name string, size float64, center geom.Point) error {
	if name == "" {
		return ErrEmptyName
	}
	if size <= 0 {
		return ErrInvalidSize
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.targets {
		if t.Name == name {
			return ErrDuplicateTarget
		}
	}
	t := &Target{Name: name, Size: size, Center: center, Color: render.White}
	t.Bounds = geom.RectAround(center, e.measurer.Measure(name, size))
	e.targets = append(e.targets, t)
	return nil
}

// Tick re-measures every target and tests it against the hand region. A
// target turns selected on any overlap, touching edges included, and turns
// back when the overlap ends. With no hand (ok false) every selected target
// is released. Tick returns the toggles it made.
func (e *Engine) Tick(ctx context.Context, now time.Time, hand geom.Rect, ok bool) []Change {
	e.mu.Lock()
	var changes []Change
	for _, t := range e.targets {
		t.Bounds = geom.RectAround(t.Center, e.measurer.Measure(t.Name, t.Size))
		hit := ok && hand.Intersects(t.Bounds)
		if hit == t.Selected {
			continue
		}
		t.Selected = hit
		t.Color = highlight(hit)
		changes = append(changes, Change{Target: *t, At: now})
	}
	e.mu.Unlock()

	for _, c := range changes {
		metrics.RecordSelectionToggle(c.Target.Name, c.Target.Selected)
		e.logger.Info(ctx, "selection changed",
			logger.String("target", c.Target.Name),
			logger.Bool("selected", c.Target.Selected),
		)
		if e.onChange != nil {
			e.onChange(ctx, c)
		}
	}
	return changes
}

// Targets returns copies of every target in registration order.
func (e *Engine) Targets() []Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Target, len(e.targets))
	for i, t := range e.targets {
		out[i] = *t
	}
	return out
}

// Primitives draws every target as a shaded red box under its label, the
// label in the target's highlight colour.
func (e *Engine) Primitives() []render.Primitive {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]render.Primitive, 0, 2*len(e.targets))
	for _, t := range e.targets {
		box := render.Rect(t.Bounds, 1, render.Red)
		fill := targetFill
		box.Fill = &fill
		out = append(out, box, render.Text(t.Name, t.Center, t.Size, t.Color))
	}
	return out
}

// targetFill shades the hit area behind each label.
var targetFill = render.Color{R: 255, A: 64}

func highlight(selected bool) render.Color {
	if selected {
		return render.Red
	}
	return render.White
}

type measureFunc func(string, float64) geom.Size

func (f measureFunc) Measure(text string, size float64) geom.Size { return f(text, size) }
