// Package boardsync keeps a drawing surface in step with a shared stroke log.
package boardsync

import "SharedBoard/internal/state"

// Surface is what the controller needs from a drawing widget.
//
// The in-progress point buffer belongs to the surface, but the controller may
// read it and swap it back in. SetInProgressPoints makes points the active
// stroke again and draws them with the current Brush. Clear must be a no-op
// on an empty surface.
type Surface interface {
	InProgressPoints() []state.Point
	SetInProgressPoints(points []state.Point)
	Render(stroke state.Stroke)
	Clear()
	Brush() state.Brush
	// OnStrokeCommitted replaces the commit listener. nil removes it.
	OnStrokeCommitted(fn func(state.Stroke))
}
