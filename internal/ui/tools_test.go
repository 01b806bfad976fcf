package ui

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/go-playground/assert/v2"

	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

func testBoard(t *testing.T) *BoardWidget {
	t.Helper()
	app := test.NewApp()
	t.Cleanup(app.Quit)
	return NewBoardWidget(surface.New(DefaultBrush), func(fn func()) bool {
		fn()
		return true
	})
}

func TestPickedColourSurvivesEraser(t *testing.T) {
	board := testBoard(t)
	colors := &palette{board: board, last: color.Black}

	teal := color.NRGBA{R: 0x12, G: 0x80, B: 0x80, A: 0xff}
	colors.pick(teal)
	assert.Equal(t, board.Brush().Color, "#128080")
	assert.Equal(t, board.Canvas().Brush().Color, "#128080")

	colors.eraser()
	assert.Equal(t, board.Brush().Color, state.White)

	colors.pen()
	assert.Equal(t, board.Brush().Color, "#128080")
}

func TestToolbarOffersColourPicker(t *testing.T) {
	board := testBoard(t)
	var picked func(color.Color)
	bar := NewToolbar(board, Actions{PickColor: func(fn func(color.Color)) { picked = fn }})

	// pen, eraser, then the picker
	tools := bar.(*fyne.Container).Objects[1].(*widget.Toolbar)
	tools.Items[2].(*widget.ToolbarAction).OnActivated()
	assert.Equal(t, picked != nil, true)

	picked(color.NRGBA{R: 0xab, A: 0xff})
	assert.Equal(t, board.Brush().Color, "#ab0000")
}

func TestToolbarWithoutPicker(t *testing.T) {
	board := testBoard(t)
	bar := NewToolbar(board, Actions{})
	tools := bar.(*fyne.Container).Objects[1].(*widget.Toolbar)
	assert.Equal(t, len(tools.Items), 2)
}
