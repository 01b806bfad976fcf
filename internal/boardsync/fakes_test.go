package boardsync

import (
	"context"
	"flag"
	"sync"

	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/state"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

// fakeSurface shares one point buffer between drawing and the stroke in
// progress, so Render wipes the in-progress points unless they are restored.
type fakeSurface struct {
	mu         sync.Mutex
	brush      state.Brush
	inProgress []state.Point
	drawn      []state.Stroke
	restores   int
	clears     int
	committed  func(state.Stroke)
}

func newFakeSurface(brush state.Brush) *fakeSurface {
	return &fakeSurface{brush: brush}
}

func (f *fakeSurface) InProgressPoints() []state.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgress
}

func (f *fakeSurface) SetInProgressPoints(points []state.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inProgress = points
	f.restores++
}

func (f *fakeSurface) Render(stroke state.Stroke) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drawn = append(f.drawn, stroke)
	f.inProgress = nil
}

func (f *fakeSurface) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.drawn) == 0 && len(f.inProgress) == 0 {
		return
	}
	f.clears++
	f.drawn = nil
	f.inProgress = nil
}

func (f *fakeSurface) Brush() state.Brush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brush
}

func (f *fakeSurface) OnStrokeCommitted(fn func(state.Stroke)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = fn
}

// user finishes a stroke: it is already on screen, then reported
func (f *fakeSurface) commit(stroke state.Stroke) {
	f.mu.Lock()
	f.drawn = append(f.drawn, stroke)
	f.inProgress = nil
	fn := f.committed
	f.mu.Unlock()
	if fn != nil {
		fn(stroke)
	}
}

func (f *fakeSurface) snapshot() (drawn []state.Stroke, inProgress []state.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]state.Stroke(nil), f.drawn...), append([]state.Point(nil), f.inProgress...)
}

type fakeLog struct {
	appends   []state.EncodedStroke
	clears    int
	appendErr error
	clearErr  error
}

type noSubscription struct{}

func (noSubscription) Unsubscribe() {}

func (l *fakeLog) Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.appends = append(l.appends, stroke)
	return nil
}

func (l *fakeLog) OnAppend(state.BoardID, func(state.EncodedStroke)) (remotelog.Subscription, error) {
	return noSubscription{}, nil
}

func (l *fakeLog) OnClear(state.BoardID, func()) (remotelog.Subscription, error) {
	return noSubscription{}, nil
}

func (l *fakeLog) Clear(ctx context.Context, board state.BoardID) error {
	if l.clearErr != nil {
		return l.clearErr
	}
	l.clears++
	return nil
}

var (
	pen  = state.Brush{Color: state.Blue, Radius: 3}
	line = state.Stroke{
		Points: []state.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Color:  state.Blue,
		Radius: 3,
	}
	remote = state.Stroke{
		Points: []state.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 10}},
		Color:  state.Red,
		Radius: 8,
	}
)
