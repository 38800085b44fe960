package render

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/okian/bodytrack/internal/domain/geom"
)

// Label padding around measured text, matching a default label control.
const labelPadding = 10

// MonospaceMeasure approximates a label extent for a monospace font.
func MonospaceMeasure(text string, fontSize float64) geom.Size {
	n := float64(utf8.RuneCountInString(text))
	return geom.Size{
		Width:  fontSize*0.6*n + labelPadding,
		Height: fontSize*1.25 + labelPadding,
	}
}

// Recorder is an in-memory Sink that keeps the last presented scene.
type Recorder struct {
	mu       sync.Mutex
	pending  []Primitive
	last     Scene
	presents uint64
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Measure(text string, fontSize float64) geom.Size {
	return MonospaceMeasure(text, fontSize)
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	r.pending = r.pending[:0]
	r.mu.Unlock()
}

func (r *Recorder) Draw(p ...Primitive) {
	r.mu.Lock()
	r.pending = append(r.pending, p...)
	r.mu.Unlock()
}

func (r *Recorder) Present(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presents++
	r.last = Scene{Seq: r.presents, Primitives: append([]Primitive(nil), r.pending...)}
	return nil
}

// Last returns the most recently presented scene.
func (r *Recorder) Last() Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Presents returns how many scenes were presented.
func (r *Recorder) Presents() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents
}
