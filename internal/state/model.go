package state

import (
	"errors"
	"fmt"
	"math"
)

// BoardID identifies one shared board. It is opaque to this module.
type BoardID string

const DefaultBoard BoardID = "default"

// EncodedStroke is the transport form of a Stroke, produced by the codec and
// stored verbatim by the remote log.
type EncodedStroke string

// Point is one sample of a stroke. Pressure and Time are optional; zero means
// the surface did not record them.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
	Time     int64   `json:"time,omitempty"` // unix millis
}

// Stroke is one continuous gesture. Points are kept in drawing order.
type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Radius float64 `json:"radius"`
}

// Brush holds the local tool settings applied to the stroke being drawn.
type Brush struct {
	Color  string
	Radius float64
}

var (
	ErrEmptyStroke   = errors.New("stroke has no points")
	ErrInvalidRadius = errors.New("stroke radius must be positive and finite")
	ErrInvalidPoint  = errors.New("stroke point is not finite")
)

func (s Stroke) Validate() error {
	if len(s.Points) == 0 {
		return ErrEmptyStroke
	}
	if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
		return ErrInvalidRadius
	}
	for i, p := range s.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Pressure) {
			return fmt.Errorf("point %d: %w", i, ErrInvalidPoint)
		}
	}
	return nil
}

// Brush returns the colour and radius the stroke was drawn with.
func (s Stroke) Brush() Brush {
	return Brush{Color: s.Color, Radius: s.Radius}
}

// ClonePoints copies points so callers can keep a snapshot while the
// source buffer keeps growing.
func ClonePoints(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
