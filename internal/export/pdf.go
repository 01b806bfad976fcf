package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/glog"
	"github.com/jung-kurt/gofpdf"

	"SharedBoard/internal/state"
)

const (
	margin = 10.0
	// board units are screen pixels; at most this many mm per pixel
	maxScale = 1.0 / 3
)

// WritePDF draws strokes on one A4 page, scaled down to fit.
func WritePDF(w io.Writer, strokes []state.Stroke) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle("SharedBoard", true)
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	pageW, pageH := p.GetPageSize()
	bounds, ok := state.Bounds(strokes...)
	scale := maxScale
	if ok && 0 < bounds.Width() && 0 < bounds.Height() {
		scale = math.Min(scale, math.Min((pageW-2*margin)/bounds.Width(), (pageH-2*margin)/bounds.Height()))
	}
	at := func(pt state.Point) (float64, float64) {
		return margin + (pt.X-bounds.MinX)*scale, margin + (pt.Y-bounds.MinY)*scale
	}

	for _, st := range strokes {
		c, err := state.ParseColor(st.Color)
		if err != nil {
			glog.V(1).Infof("[export]%s, drawing in black", err)
		}
		p.SetDrawColor(int(c.R), int(c.G), int(c.B))
		p.SetFillColor(int(c.R), int(c.G), int(c.B))
		width := 2 * st.Radius * scale
		p.SetLineWidth(width)

		if len(st.Points) == 1 {
			x, y := at(st.Points[0])
			p.Circle(x, y, width/2, "F")
			continue
		}
		for i := 1; i < len(st.Points); i++ {
			x1, y1 := at(st.Points[i-1])
			x2, y2 := at(st.Points[i])
			p.Line(x1, y1, x2, y2)
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the board to a file at path.
func ExportPDF(path string, strokes []state.Stroke) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePDF(f, strokes); err != nil {
		f.Close()
		return err
	}
	glog.Infof("[export]wrote %d strokes to %s", len(strokes), path)
	return f.Close()
}
