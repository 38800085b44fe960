// Package sensor provides skeleton sources: an in-process synthetic
// generator, a websocket bridge for an external sensor process, and a
// placeholder for running without any sensor.
package sensor

import (
	"math"
	"time"

	"github.com/okian/bodytrack/internal/domain/skeleton"
)

// SlotCount is how many slots every frame reports.
const SlotCount = 6

// Pose returns a standing skeleton waving its left arm, t into the wave.
// Bodies are spread horizontally by slot out of n.
func Pose(slot, n int, t time.Duration) map[skeleton.JointID]skeleton.Vec3 {
	s := t.Seconds()
	dx := (float64(slot)-float64(n-1)/2)*0.6 + 0.05*math.Sin(0.3*s+float64(slot))

	p := func(x, y float64) skeleton.Vec3 { return skeleton.Vec3{X: x + dx, Y: y, Z: 2} }
	j := map[skeleton.JointID]skeleton.Vec3{
		skeleton.HipCenter:      p(0, 0),
		skeleton.Spine:          p(0, 0.2),
		skeleton.ShoulderCenter: p(0, 0.45),
		skeleton.Head:           p(0, 0.62),

		skeleton.ShoulderRight: p(0.15, 0.42),
		skeleton.ElbowRight:    p(0.22, 0.22),
		skeleton.WristRight:    p(0.25, 0.05),
		skeleton.HandRight:     p(0.26, 0),

		skeleton.HipLeft:    p(-0.1, -0.05),
		skeleton.KneeLeft:   p(-0.11, -0.42),
		skeleton.AnkleLeft:  p(-0.11, -0.78),
		skeleton.FootLeft:   p(-0.14, -0.82),
		skeleton.HipRight:   p(0.1, -0.05),
		skeleton.KneeRight:  p(0.11, -0.42),
		skeleton.AnkleRight: p(0.11, -0.78),
		skeleton.FootRight:  p(0.14, -0.82),
	}

	// Left forearm swings about the elbow.
	shoulder := skeleton.Vec3{X: -0.15, Y: 0.42}
	elbow := skeleton.Vec3{X: shoulder.X - 0.12, Y: shoulder.Y + 0.08}
	phi := math.Pi/2 + 0.7*math.Sin(2*math.Pi*0.5*s)
	j[skeleton.ShoulderLeft] = p(shoulder.X, shoulder.Y)
	j[skeleton.ElbowLeft] = p(elbow.X, elbow.Y)
	j[skeleton.WristLeft] = p(elbow.X+0.15*math.Cos(phi), elbow.Y+0.15*math.Sin(phi))
	j[skeleton.HandLeft] = p(elbow.X+0.2*math.Cos(phi), elbow.Y+0.2*math.Sin(phi))
	return j
}
