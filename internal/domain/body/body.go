// Package body owns the set of tracked bodies: it creates them when a slot
// is first tracked, projects sensor joints into render space, and ages out
// bodies the sensor stopped reporting.
package body

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/bodytrack/internal/domain/estimator"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/skeleton"
)

// Segment sizes as fractions of the reference frame height.
const (
	boneSize      = 0.01
	headSize      = 0.075
	handSize      = 0.03
	minBoneStroke = 3.0
)

// ReferenceFrame maps sensor-normalized coordinates into render space.
type ReferenceFrame struct {
	Bounds geom.Rect
	Center geom.Point
	Scale  float64
}

// NewReferenceFrame derives center and uniform scale from bounds.
func NewReferenceFrame(bounds geom.Rect) ReferenceFrame {
	return ReferenceFrame{
		Bounds: bounds,
		Center: bounds.Center(),
		Scale:  math.Min(bounds.Width, bounds.Height/2),
	}
}

// Project maps a sensor position into render space. Sensor Y points up,
// render Y points down.
func (f ReferenceFrame) Project(v skeleton.Vec3) geom.Point {
	return geom.Pt(v.X*f.Scale+f.Center.X, f.Center.Y-v.Y*f.Scale)
}

// BoneRadius is the half-thickness of every bone.
func (f ReferenceFrame) BoneRadius() float64 {
	return math.Max(minBoneStroke, f.Bounds.Height*boneSize) / 2
}

// JointRadius is the circle radius drawn for a joint.
func (f ReferenceFrame) JointRadius(j skeleton.JointID) float64 {
	if j == skeleton.Head {
		return f.Bounds.Height * headSize / 2
	}
	return f.Bounds.Height * handSize / 2
}

// Body is one tracked person. All fields are guarded by the owning Manager.
type Body struct {
	ID          uuid.UUID
	Slot        int
	Alive       bool
	LastUpdated time.Time
	Colors      Palette

	frame  ReferenceFrame
	tracks map[skeleton.Key]*estimator.Track
}

func newBody(slot int, frame ReferenceFrame, colors Palette, now time.Time) *Body {
	return &Body{
		ID:          uuid.New(),
		Slot:        slot,
		LastUpdated: now,
		Colors:      colors,
		frame:       frame,
		tracks:      make(map[skeleton.Key]*estimator.Track),
	}
}

// Frame returns the body's reference frame.
func (b *Body) Frame() ReferenceFrame { return b.frame }

// setBounds moves the body onto new bounds. Held samples are carried into
// the new frame so a resize does not read as motion.
func (b *Body) setBounds(r geom.Rect) {
	from, to := b.frame, NewReferenceFrame(r)
	b.frame = to
	if from.Scale <= 0 {
		b.tracks = make(map[skeleton.Key]*estimator.Track)
		return
	}
	for k, tr := range b.tracks {
		radius := to.BoneRadius()
		if k.IsJoint() {
			radius = to.JointRadius(k.A)
		}
		tr.Rebase(func(s geom.Segment) geom.Segment {
			return geom.Segment{P1: from.rebase(s.P1, to), P2: from.rebase(s.P2, to), Radius: radius}
		})
	}
}

// rebase maps a point projected in f into the same sensor position in to.
func (f ReferenceFrame) rebase(p geom.Point, to ReferenceFrame) geom.Point {
	k := to.Scale / f.Scale
	return geom.Pt(to.Center.X+(p.X-f.Center.X)*k, to.Center.Y+(p.Y-f.Center.Y)*k)
}

// apply stamps the body and, when joints are present, refreshes every
// tracked joint and bone. Segments whose joints are missing keep their
// previous samples.
func (b *Body) apply(raw skeleton.RawBody, now time.Time) {
	b.LastUpdated = now
	if len(raw.Joints) == 0 {
		b.Alive = false
		return
	}
	b.Alive = true

	for _, j := range skeleton.TrackedJoints {
		pos, ok := raw.Joints[j]
		if !ok {
			continue
		}
		b.observe(skeleton.JointKey(j), geom.Circle(b.frame.Project(pos), b.frame.JointRadius(j)), now)
	}
	for _, k := range skeleton.TrackedBones {
		a, okA := raw.Joints[k.A]
		c, okB := raw.Joints[k.B]
		if !okA || !okB {
			continue
		}
		b.observe(k, geom.Line(b.frame.Project(a), b.frame.Project(c), b.frame.BoneRadius()), now)
	}
}

func (b *Body) observe(k skeleton.Key, seg geom.Segment, now time.Time) {
	tr, ok := b.tracks[k]
	if !ok {
		tr = &estimator.Track{}
		b.tracks[k] = tr
	}
	tr.Observe(seg, now)
}

// View is the render-time picture of a body.
type View struct {
	ID     uuid.UUID
	Slot   int
	Colors Palette
	// Bones come first, then joint circles, so joints draw on top.
	Segments []geom.Segment
	// LeftHand is the hit-test region of the left hand, valid when HasLeftHand.
	LeftHand    geom.Rect
	HasLeftHand bool
}

func (b *Body) view(est *estimator.Estimator, at time.Time) View {
	v := View{ID: b.ID, Slot: b.Slot, Colors: b.Colors}
	v.Segments = make([]geom.Segment, 0, len(b.tracks))
	for _, k := range skeleton.TrackedBones {
		if tr, ok := b.tracks[k]; ok {
			v.Segments = append(v.Segments, est.Estimate(tr, at))
		}
	}
	for _, j := range skeleton.TrackedJoints {
		tr, ok := b.tracks[skeleton.JointKey(j)]
		if !ok {
			continue
		}
		seg := est.Estimate(tr, at)
		v.Segments = append(v.Segments, seg)
		if j == skeleton.HandLeft {
			v.LeftHand = geom.Rect{X: seg.P1.X, Y: seg.P1.Y, Width: seg.Radius, Height: seg.Radius}
			v.HasLeftHand = true
		}
	}
	return v
}
