package game

import (
	"fmt"
	"math"
)

// Point is a canvas position normalized to the unit square
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pointer drag.
//
// Strokes are identified by ID and ordered by Seq, never compared by value,
// so two identical drags are two entries in the log.
type Stroke struct {
	ID        string  `json:"id"`
	Seq       int64   `json:"seq"`
	PlayerID  string  `json:"playerId"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	Points    []Point `json:"points"`
}

// Clone returns a deep copy of the stroke
func (s Stroke) Clone() Stroke {
	s.Points = append([]Point(nil), s.Points...)
	return s
}

// Scaled maps the stroke's normalized points onto a width x height canvas
func (s Stroke) Scaled(width, height float64) []Point {
	out := make([]Point, len(s.Points))
	for i, p := range s.Points {
		out[i] = Point{X: p.X * width, Y: p.Y * height}
	}
	return out
}

// Replay calls draw for every stroke in log order with points scaled to the canvas.
// Renderers redraw the whole log on every update or resize.
func Replay(strokes []Stroke, width, height float64, draw func(s Stroke, points []Point)) {
	for _, s := range strokes {
		if len(s.Points) == 0 {
			continue
		}
		draw(s, s.Scaled(width, height))
	}
}

// Normalize converts a pixel position inside a canvas bounding box to unit coordinates
func Normalize(x, y, left, top, width, height float64) Point {
	if width <= 0 || height <= 0 {
		return Point{}
	}
	return Point{X: (x - left) / width, Y: (y - top) / height}
}

// ValidateStroke checks that a submitted stroke can be appended to the log
func ValidateStroke(s Stroke, maxPoints int) error {
	if len(s.Points) == 0 {
		return invalidStroke("stroke has no points")
	}
	if maxPoints > 0 && len(s.Points) > maxPoints {
		return invalidStroke(fmt.Sprintf("stroke has %d points, limit is %d", len(s.Points), maxPoints))
	}
	if !(s.LineWidth > 0) || math.IsInf(s.LineWidth, 0) {
		return invalidStroke("line width must be positive")
	}
	if s.Color == "" {
		return invalidStroke("color is required")
	}
	for _, p := range s.Points {
		if !inUnit(p.X) || !inUnit(p.Y) {
			return invalidStroke("points must be normalized to [0,1]")
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

func invalidStroke(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidStroke, msg)
}
