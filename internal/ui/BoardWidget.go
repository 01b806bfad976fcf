package ui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

// BoardWidget shows a surface.Canvas and feeds it pointer input. Input is
// handed to post so it runs in order with remote events; the canvas calls
// back through fyne.Do when something changed.
type BoardWidget struct {
	widget.BaseWidget
	canvas *surface.Canvas
	post   func(func()) bool

	mu         sync.Mutex
	panX, panY float32
	drawing    bool
	brush      state.Brush

	statusBar *widget.Label
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

// DefaultBrush is a thin black pen.
var DefaultBrush = state.Brush{Color: state.Black, Radius: 1}

func NewBoardWidget(c *surface.Canvas, post func(func()) bool) *BoardWidget {
	b := &BoardWidget{
		canvas:    c,
		post:      post,
		brush:     c.Brush(),
		statusBar: widget.NewLabel("Ready"),
	}
	b.ExtendBaseWidget(b)
	c.OnChange(func() {
		fyne.Do(b.Refresh)
	})
	return b
}

func (b *BoardWidget) Canvas() *surface.Canvas {
	return b.canvas
}

func (b *BoardWidget) StatusBar() *widget.Label {
	return b.statusBar
}

// SetStatus may be called from any goroutine.
func (b *BoardWidget) SetStatus(text string) {
	fyne.Do(func() {
		b.statusBar.SetText(text)
	})
}

func (b *BoardWidget) Brush() state.Brush {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.brush
}

func (b *BoardWidget) SetColor(c color.Color) {
	b.setBrush(func(brush *state.Brush) {
		brush.Color = state.ColorString(c)
	})
}

// SetStroke sets the pen width in pixels.
func (b *BoardWidget) SetStroke(width float32) {
	b.setBrush(func(brush *state.Brush) {
		brush.Radius = float64(width) / 2
	})
}

func (b *BoardWidget) setBrush(update func(*state.Brush)) {
	b.mu.Lock()
	update(&b.brush)
	brush := b.brush
	b.mu.Unlock()
	b.post(func() {
		b.canvas.SetBrush(brush)
	})
}

func (b *BoardWidget) point(pos fyne.Position) state.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return state.Point{
		X:    float64(pos.X - b.panX),
		Y:    float64(pos.Y - b.panY),
		Time: time.Now().UnixMilli(),
	}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := b.point(e.Position)
	b.mu.Lock()
	b.drawing = true
	b.mu.Unlock()
	b.post(func() {
		b.canvas.Begin(p)
	})
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.mu.Lock()
	drawing := b.drawing
	b.drawing = false
	b.mu.Unlock()
	if drawing {
		b.post(b.canvas.Commit)
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.mu.Lock()
	drawing := b.drawing
	if !drawing {
		b.panX += e.Dragged.DX
		b.panY += e.Dragged.DY
	}
	b.mu.Unlock()

	if drawing {
		p := b.point(e.Position)
		b.post(func() {
			b.canvas.Extend(p)
		})
		return
	}
	b.Refresh()
}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	b.mu.Lock()
	b.panX += e.Scrolled.DX
	b.panY += e.Scrolled.DY
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseOut()                      {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}
func (b *BoardWidget) DragEnd()                       {}

func (b *BoardWidget) pan() (float32, float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.panX, b.panY
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(color.White)
	r.rebuild()
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	objects    []fyne.CanvasObject
}

func (r *boardWidgetRenderer) rebuild() {
	strokes, active := r.board.canvas.Snapshot()
	panX, panY := r.board.pan()

	objects := []fyne.CanvasObject{r.background}
	if 0 < len(active.Points) {
		strokes = append(strokes, active)
	}
	for _, s := range strokes {
		objects = appendStroke(objects, s, panX, panY)
	}
	r.objects = objects
}

func appendStroke(objects []fyne.CanvasObject, s state.Stroke, panX, panY float32) []fyne.CanvasObject {
	c, err := state.ParseColor(s.Color)
	if err != nil {
		c = color.NRGBA{A: 0xff}
	}
	width := float32(2 * s.Radius)

	if len(s.Points) == 1 {
		p := s.Points[0]
		dot := canvas.NewCircle(c)
		dot.Resize(fyne.NewSize(width, width))
		dot.Move(fyne.NewPos(float32(p.X)+panX-width/2, float32(p.Y)+panY-width/2))
		return append(objects, dot)
	}
	for i := 0; i < len(s.Points)-1; i++ {
		segment := canvas.NewLine(c)
		segment.StrokeWidth = width
		segment.Position1 = fyne.NewPos(float32(s.Points[i].X)+panX, float32(s.Points[i].Y)+panY)
		segment.Position2 = fyne.NewPos(float32(s.Points[i+1].X)+panX, float32(s.Points[i+1].Y)+panY)
		objects = append(objects, segment)
	}
	return objects
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *boardWidgetRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Destroy() {}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}
