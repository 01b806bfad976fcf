package state

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestValidate(t *testing.T) {
	ok := Stroke{Points: []Point{{X: 1, Y: 2}}, Color: Black, Radius: 2}
	assert.Equal(t, ok.Validate(), nil)

	empty := Stroke{Color: Black, Radius: 2}
	assert.Equal(t, errors.Is(empty.Validate(), ErrEmptyStroke), true)

	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		s := Stroke{Points: []Point{{X: 1, Y: 2}}, Radius: r}
		assert.Equal(t, errors.Is(s.Validate(), ErrInvalidRadius), true)
	}

	bad := Stroke{Points: []Point{{X: 1, Y: 2}, {X: math.NaN(), Y: 0}}, Radius: 1}
	assert.Equal(t, errors.Is(bad.Validate(), ErrInvalidPoint), true)
}

func TestClonePoints(t *testing.T) {
	assert.Equal(t, ClonePoints(nil) == nil, true)

	points := []Point{{X: 1}, {X: 2}}
	clone := ClonePoints(points)
	points[0].X = 9
	assert.Equal(t, clone[0].X, 1.0)
	assert.Equal(t, len(clone), 2)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0000")
	assert.Equal(t, err, nil)
	assert.Equal(t, c, color.NRGBA{R: 0xff, A: 0xff})

	c, err = ParseColor("#0f0")
	assert.Equal(t, err, nil)
	assert.Equal(t, c, color.NRGBA{G: 0xff, A: 0xff})

	c, err = ParseColor("Blue")
	assert.Equal(t, err, nil)
	assert.Equal(t, c, color.NRGBA{B: 0xff, A: 0xff})

	c, err = ParseColor("#11223380")
	assert.Equal(t, err, nil)
	assert.Equal(t, c, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80})

	_, err = ParseColor("mauve")
	assert.NotEqual(t, err, nil)
	_, err = ParseColor("#12345")
	assert.NotEqual(t, err, nil)
	_, err = ParseColor("#zzzzzz")
	assert.NotEqual(t, err, nil)
}

func TestColorString(t *testing.T) {
	assert.Equal(t, ColorString(color.NRGBA{R: 0xff, A: 0xff}), Red)
	assert.Equal(t, ColorString(color.NRGBA{R: 1, G: 2, B: 3, A: 4}), "#01020304")
}

func TestBounds(t *testing.T) {
	_, ok := Bounds()
	assert.Equal(t, ok, false)

	r, ok := Bounds(
		Stroke{Points: []Point{{X: 10, Y: 10}, {X: 20, Y: 5}}, Radius: 1},
		Stroke{Points: []Point{{X: -4, Y: 30}}, Radius: 2},
	)
	assert.Equal(t, ok, true)
	assert.Equal(t, r, Rect{MinX: -6, MinY: 4, MaxX: 21, MaxY: 32})
	assert.Equal(t, r.Width(), 27.0)
	assert.Equal(t, r.Height(), 28.0)
}

func TestSiteID(t *testing.T) {
	assert.Equal(t, SiteID(), SiteID())
	assert.Equal(t, len(SiteID()), 36)
}
