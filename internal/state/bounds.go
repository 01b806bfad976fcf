package state

// Rect is an axis aligned area in board coordinates.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds returns the box covering every point of strokes, padded by each
// stroke's radius. ok is false when there are no points at all.
func Bounds(strokes ...Stroke) (r Rect, ok bool) {
	for _, s := range strokes {
		for _, p := range s.Points {
			minX, minY := p.X-s.Radius, p.Y-s.Radius
			maxX, maxY := p.X+s.Radius, p.Y+s.Radius
			if !ok {
				r = Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
				ok = true
				continue
			}
			if minX < r.MinX {
				r.MinX = minX
			}
			if minY < r.MinY {
				r.MinY = minY
			}
			if maxX > r.MaxX {
				r.MaxX = maxX
			}
			if maxY > r.MaxY {
				r.MaxY = maxY
			}
		}
	}
	return r, ok
}
