package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/golang/glog"

	"SharedBoard/internal/export"
)

// Window settings for RunApp. ShareLink, when set, is shown with a copy
// button. Clear asks for confirmation first.
type Window struct {
	Title     string
	ShareLink string
	Clear     func()
}

// RunApp shows board and blocks until the window is closed.
func RunApp(w Window, board *BoardWidget) {
	myApp := app.New()
	myWindow := myApp.NewWindow(w.Title)
	myWindow.Resize(fyne.NewSize(1024, 768))

	actions := Actions{
		Export:    func() { exportDialog(myWindow, board) },
		PickColor: func(picked func(color.Color)) { colorDialog(myWindow, picked) },
	}
	if w.Clear != nil {
		actions.Clear = func() {
			dialog.ShowConfirm("Clear board", "Clear the board for everyone?", func(ok bool) {
				if ok {
					w.Clear()
				}
			}, myWindow)
		}
	}
	toolbar := NewToolbar(board, actions)

	top := toolbar
	if w.ShareLink != "" {
		link := widget.NewEntry()
		link.SetText(w.ShareLink)
		copyButton := widget.NewButton("Copy link", func() {
			myWindow.Clipboard().SetContent(w.ShareLink)
			board.SetStatus("Link copied")
		})
		top = container.NewVBox(
			toolbar,
			container.NewBorder(nil, nil, widget.NewLabel("Share:"), copyButton, link),
		)
	}

	myWindow.SetContent(container.NewBorder(top, nil, nil, nil, board))
	myWindow.ShowAndRun()
}

func colorDialog(window fyne.Window, picked func(color.Color)) {
	picker := dialog.NewColorPicker("Pen colour", "Pick any colour", picked, window)
	picker.Advanced = true
	picker.Show()
}

func exportDialog(window fyne.Window, board *BoardWidget) {
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			board.SetStatus("Export failed")
			glog.Errorf("[ui]export dialog: %s", err)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		strokes := board.Canvas().Strokes()
		if err := export.WritePDF(writer, strokes); err != nil {
			board.SetStatus("Export failed")
			glog.Errorf("[ui]export to %s: %s", writer.URI(), err)
			return
		}
		board.SetStatus(fmt.Sprintf("Exported %d strokes", len(strokes)))
	}, window)
	save.SetFileName("board.pdf")
	save.Show()
}

// Quit closes the running app, if any. Safe from any goroutine.
func Quit() {
	fyne.Do(func() {
		if a := fyne.CurrentApp(); a != nil {
			a.Quit()
		}
	})
}
