package service

import (
	"github.com/okian/bodytrack/internal/domain/body"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/render"
)

func rgb(c body.Color) render.Color { return render.RGB(c.R, c.G, c.B) }

// drawBody renders bones as thick round-capped lines, joints as outlined
// circles, and the left hand hit region as a red dot.
func drawBody(v body.View) []render.Primitive {
	joint, bone := rgb(v.Colors.Joint), rgb(v.Colors.Bone)
	out := make([]render.Primitive, 0, len(v.Segments)+1)
	for _, s := range v.Segments {
		if s.IsCircle() {
			out = append(out, render.Circle(s.P1, s.Radius, joint, bone))
			continue
		}
		out = append(out, render.Line(s.P1, s.P2, s.Radius*2, bone))
	}
	if v.HasLeftHand {
		out = append(out, render.Circle(geom.Pt(v.LeftHand.X, v.LeftHand.Y), v.LeftHand.Width, render.Red, render.Red))
	}
	return out
}

// designatedHand picks the left hand of the lowest-slot live body.
func designatedHand(views []body.View) (geom.Rect, bool) {
	for _, v := range views {
		if v.HasLeftHand {
			return v.LeftHand, true
		}
	}
	return geom.Rect{}, false
}
