// Package geom holds the 2-D render-space geometry shared by the tracker,
// the estimator and the selection engine.
package geom

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in render coordinates (y grows downwards).
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectAround returns a rect of the given size centred on c.
func RectAround(c Point, s Size) Rect {
	return Rect{X: c.X - s.Width/2, Y: c.Y - s.Height/2, Width: s.Width, Height: s.Height}
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Pt((r.Left()+r.Right())/2, (r.Top()+r.Bottom())/2)
}

// Empty reports whether r has a negative extent. Zero-sized rects are points
// and still take part in intersection tests.
func (r Rect) Empty() bool {
	return r.Width < 0 || r.Height < 0
}

// Intersects reports whether r and o overlap. Touching edges count.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Left() <= o.Right() && r.Right() >= o.Left() &&
		r.Top() <= o.Bottom() && r.Bottom() >= o.Top()
}

// Segment is a bone (a line with a radius) or, when both endpoints are the
// same, a joint circle.
type Segment struct {
	P1     Point   `json:"p1"`
	P2     Point   `json:"p2"`
	Radius float64 `json:"radius"`
}

// Line builds a bone segment.
func Line(p1, p2 Point, radius float64) Segment {
	return Segment{P1: p1, P2: p2, Radius: radius}
}

// Circle builds a joint segment.
func Circle(c Point, radius float64) Segment {
	return Segment{P1: c, P2: c, Radius: radius}
}

// IsCircle reports whether s is a joint.
func (s Segment) IsCircle() bool {
	return s.P1 == s.P2
}
