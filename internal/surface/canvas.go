// Package surface has a headless drawing surface. The fyne widget draws
// whatever a Canvas holds.
package surface

import (
	"sync"

	"SharedBoard/internal/state"
)

// Canvas holds the finished strokes of a board plus the stroke being drawn.
//
// Pointer input (Begin, Extend, Commit) and the sync controller are expected
// to run on one goroutine; the lock only lets a renderer read concurrently.
type Canvas struct {
	mu       sync.Mutex
	strokes  []state.Stroke
	active   []state.Point
	drawing  bool
	brush    state.Brush
	commit   func(state.Stroke)
	onChange func()
}

func New(brush state.Brush) *Canvas {
	return &Canvas{brush: brush}
}

// OnChange sets a function called after every visible change. It runs with
// no lock held.
func (c *Canvas) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Canvas) OnStrokeCommitted(fn func(state.Stroke)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit = fn
}

func (c *Canvas) Brush() state.Brush {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brush
}

// SetBrush changes the tool. The stroke in progress is redrawn with it.
func (c *Canvas) SetBrush(brush state.Brush) {
	c.mu.Lock()
	c.brush = brush
	c.mu.Unlock()
	c.changed()
}

// Begin starts a stroke at p, dropping any unfinished one.
func (c *Canvas) Begin(p state.Point) {
	c.mu.Lock()
	c.drawing = true
	c.active = []state.Point{p}
	c.mu.Unlock()
	c.changed()
}

// Extend adds p to the stroke in progress. Points arriving after a clear
// mid-gesture start a fresh stroke.
func (c *Canvas) Extend(p state.Point) {
	c.mu.Lock()
	if !c.drawing {
		c.mu.Unlock()
		return
	}
	c.active = append(c.active, p)
	c.mu.Unlock()
	c.changed()
}

// Commit finishes the stroke in progress, keeps it and reports it with the
// current brush. A gesture with no points is ignored.
func (c *Canvas) Commit() {
	c.mu.Lock()
	c.drawing = false
	if len(c.active) == 0 {
		c.mu.Unlock()
		return
	}
	stroke := state.Stroke{
		Points: c.active,
		Color:  c.brush.Color,
		Radius: c.brush.Radius,
	}
	c.active = nil
	c.strokes = append(c.strokes, stroke)
	commit := c.commit
	c.mu.Unlock()

	c.changed()
	if commit != nil {
		commit(stroke)
	}
}

func (c *Canvas) Drawing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

func (c *Canvas) InProgressPoints() []state.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return state.ClonePoints(c.active)
}

func (c *Canvas) SetInProgressPoints(points []state.Point) {
	c.mu.Lock()
	c.active = state.ClonePoints(points)
	c.mu.Unlock()
	c.changed()
}

func (c *Canvas) Render(stroke state.Stroke) {
	c.mu.Lock()
	c.strokes = append(c.strokes, stroke)
	c.mu.Unlock()
	c.changed()
}

// Clear removes everything, the stroke in progress included. Clearing an
// empty canvas does nothing.
func (c *Canvas) Clear() {
	c.mu.Lock()
	if len(c.strokes) == 0 && len(c.active) == 0 {
		c.mu.Unlock()
		return
	}
	c.strokes = nil
	c.active = nil
	c.mu.Unlock()
	c.changed()
}

// Strokes returns the finished strokes in the order they were drawn.
func (c *Canvas) Strokes() []state.Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]state.Stroke(nil), c.strokes...)
}

// Snapshot returns everything a renderer needs in one consistent read: the
// finished strokes and the stroke in progress drawn with the current brush.
func (c *Canvas) Snapshot() (strokes []state.Stroke, active state.Stroke) {
	c.mu.Lock()
	defer c.mu.Unlock()
	strokes = append([]state.Stroke(nil), c.strokes...)
	active = state.Stroke{
		Points: state.ClonePoints(c.active),
		Color:  c.brush.Color,
		Radius: c.brush.Radius,
	}
	return strokes, active
}

func (c *Canvas) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
