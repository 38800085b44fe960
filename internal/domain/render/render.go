// Package render defines the drawing contract between the scene and
// whatever displays it.
package render

import (
	"context"
	"fmt"

	"github.com/okian/bodytrack/internal/domain/geom"
)

// Color is an RGBA colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

var (
	White = RGB(255, 255, 255)
	Red   = RGB(255, 0, 0)
	Black = RGB(0, 0, 0)
)

// Kind tags a Primitive.
type Kind uint8

const (
	KindLine Kind = iota + 1
	KindCircle
	KindRect
	KindText
)

var kindNames = map[Kind]string{
	KindLine:   "line",
	KindCircle: "circle",
	KindRect:   "rect",
	KindText:   "text",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, s := range kindNames {
		if s == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, string(b))
}

// Primitive is one drawable shape. Which fields matter depends on Kind:
//
//	line:   X1,Y1 → X2,Y2 with Thickness, round caps
//	circle: centre X1,Y1 and Radius, optional Fill
//	rect:   X1,Y1 top-left with Width, Height, optional Fill
//	text:   Text centred on X1,Y1 at FontSize
type Primitive struct {
	Kind      Kind    `json:"kind"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2,omitempty"`
	Y2        float64 `json:"y2,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
	Text      string  `json:"text,omitempty"`
	FontSize  float64 `json:"font_size,omitempty"`
	Stroke    Color   `json:"stroke"`
	Fill      *Color  `json:"fill,omitempty"`
}

// Line draws a round-capped line.
func Line(p1, p2 geom.Point, thickness float64, stroke Color) Primitive {
	return Primitive{Kind: KindLine, X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y, Thickness: thickness, Stroke: stroke}
}

// Circle draws a circle with a 1px outline and the given fill.
func Circle(c geom.Point, radius float64, stroke, fill Color) Primitive {
	return Primitive{Kind: KindCircle, X1: c.X, Y1: c.Y, Radius: radius, Thickness: 1, Stroke: stroke, Fill: &fill}
}

// Rect outlines r.
func Rect(r geom.Rect, thickness float64, stroke Color) Primitive {
	return Primitive{Kind: KindRect, X1: r.X, Y1: r.Y, Width: r.Width, Height: r.Height, Thickness: thickness, Stroke: stroke}
}

// Text draws a label centred on c.
func Text(s string, c geom.Point, fontSize float64, color Color) Primitive {
	return Primitive{Kind: KindText, X1: c.X, Y1: c.Y, Text: s, FontSize: fontSize, Stroke: color}
}

// Measurer reports the rendered extent of a text label, padding included.
type Measurer interface {
	Measure(text string, fontSize float64) geom.Size
}

// Sink receives one scene per render tick: Clear, any number of Draw calls,
// then Present.
type Sink interface {
	Measurer
	Clear()
	Draw(p ...Primitive)
	Present(ctx context.Context) error
}

// Scene is a presented frame as shipped to display clients.
type Scene struct {
	Seq        uint64      `json:"seq"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Primitives []Primitive `json:"primitives"`
}
