package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	penWidth    = 2.0
	eraserWidth = 20.0
)

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// Actions are the board wide buttons. A nil action hides its button.
// PickColor asks the user for any colour and hands it to picked.
type Actions struct {
	Clear     func()
	Export    func()
	PickColor func(picked func(color.Color))
}

// palette tracks the pen colour so the pen tool can return to it after the
// eraser.
type palette struct {
	board *BoardWidget
	last  color.Color
}

func (p *palette) pick(c color.Color) {
	p.last = c
	p.board.SetColor(c)
}

func (p *palette) pen() {
	p.board.SetColor(p.last)
}

func (p *palette) eraser() {
	p.board.SetColor(color.White)
}

// --- The Main Toolbar ---
func NewToolbar(board *BoardWidget, actions Actions) fyne.CanvasObject {
	colors := &palette{board: board, last: color.Black}

	strokeSlider := widget.NewSlider(1.0, 50.0)
	strokeSlider.SetValue(penWidth)
	strokeSlider.OnChanged = func(val float64) {
		board.SetStroke(float32(val))
	}

	items := []widget.ToolbarItem{
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() {
			colors.pen()
			if eraserWidth/2 <= board.Brush().Radius {
				strokeSlider.SetValue(penWidth)
			}
		}), // Pen
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			colors.eraser()
			strokeSlider.SetValue(eraserWidth)
		}), // Eraser
	}
	if actions.PickColor != nil {
		items = append(items, widget.NewToolbarAction(theme.ColorPaletteIcon(), func() {
			actions.PickColor(colors.pick)
		}))
	}
	if actions.Clear != nil || actions.Export != nil {
		items = append(items, widget.NewToolbarSeparator())
	}
	if actions.Clear != nil {
		items = append(items, widget.NewToolbarAction(theme.ContentClearIcon(), actions.Clear))
	}
	if actions.Export != nil {
		items = append(items, widget.NewToolbarAction(theme.DocumentSaveIcon(), actions.Export))
	}
	tb := widget.NewToolbar(items...)

	// --- Color Palette ---
	onColorTapped := colors.pick
	colorBox := container.NewHBox(
		newColorSwatch(color.Black, onColorTapped),
		newColorSwatch(color.NRGBA{R: 255, A: 255}, onColorTapped),         // Red
		newColorSwatch(color.NRGBA{G: 255, A: 255}, onColorTapped),         // Green
		newColorSwatch(color.NRGBA{B: 255, A: 255}, onColorTapped),         // Blue
		newColorSwatch(color.NRGBA{R: 255, G: 255, A: 255}, onColorTapped), // Yellow
	)

	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), strokeSlider)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tb,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		layout.NewSpacer(),
		board.StatusBar(),
	)
}
