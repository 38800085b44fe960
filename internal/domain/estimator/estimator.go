// Package estimator projects infrequent skeleton samples forward to the
// render instant.
//
// The sensor delivers roughly 30 frames a second with jitter while the render
// loop runs faster, so drawing the last known position stutters. Each Track
// keeps the two latest samples; Estimate extrapolates the latest one linearly
// using the velocity between them.
package estimator

import (
	"time"

	"github.com/okian/bodytrack/internal/domain/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMaxSampleGap is the widest spacing between two samples that still
// yields a usable velocity.
const DefaultMaxSampleGap = 250 * time.Millisecond

// Sample is one observed segment.
type Sample struct {
	Segment geom.Segment
	At      time.Time
}

// Track is the short history of one joint or bone. The zero value is an
// empty track.
type Track struct {
	latest Sample
	prev   Sample
	n      int
}

// Observe records a new sample, shifting the latest one into history.
func (t *Track) Observe(seg geom.Segment, at time.Time) {
	t.prev = t.latest
	t.latest = Sample{Segment: seg, At: at}
	if t.n < 2 {
		t.n++
	}
}

// Latest returns the most recent sample.
func (t *Track) Latest() (Sample, bool) {
	return t.latest, t.n > 0
}

// Samples returns how many samples the track holds (0, 1 or 2).
func (t *Track) Samples() int { return t.n }

// Rebase rewrites every held sample through fn, keeping timestamps. Used
// when the coordinate space under the track changes.
func (t *Track) Rebase(fn func(geom.Segment) geom.Segment) {
	if t.n > 0 {
		t.latest.Segment = fn(t.latest.Segment)
	}
	if t.n > 1 {
		t.prev.Segment = fn(t.prev.Segment)
	}
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithMaxSampleGap sets the widest sample spacing used for extrapolation.
func WithMaxSampleGap(d time.Duration) Option {
	return func(e *Estimator) {
		if d > 0 {
			e.maxSampleGap = d
		}
	}
}

// Estimator is stateless apart from its tuning and safe for concurrent use.
type Estimator struct {
	maxSampleGap time.Duration
}

// New creates an Estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{maxSampleGap: DefaultMaxSampleGap}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSampleGap returns the configured gap threshold.
func (e *Estimator) MaxSampleGap() time.Duration { return e.maxSampleGap }

// Estimate returns the track's geometry at the given instant.
//
// The latest sample is returned unchanged when the track has a single
// sample, when the two samples are not strictly ordered, when they are more
// than MaxSampleGap apart (the body was lost and reacquired), or when at
// precedes the latest sample.
func (e *Estimator) Estimate(t *Track, at time.Time) geom.Segment {
	if t.n == 0 {
		return geom.Segment{}
	}
	latest := t.latest
	if t.n < 2 {
		return latest.Segment
	}

	span := latest.At.Sub(t.prev.At)
	if span <= 0 || span > e.maxSampleGap {
		return latest.Segment
	}
	ahead := at.Sub(latest.At)
	if ahead <= 0 {
		return latest.Segment
	}

	// Scale factor Δ/(t1-t0) applied to the displacement p1-p0.
	k := ahead.Seconds() / span.Seconds()
	p1 := project(t.prev.Segment.P1, latest.Segment.P1, k)
	if latest.Segment.IsCircle() {
		return geom.Circle(p1, latest.Segment.Radius)
	}
	p2 := project(t.prev.Segment.P2, latest.Segment.P2, k)
	return geom.Line(p1, p2, latest.Segment.Radius)
}

func project(from, to geom.Point, k float64) geom.Point {
	return r2.Add(to, r2.Scale(k, r2.Sub(to, from)))
}
