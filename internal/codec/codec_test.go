package codec

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"SharedBoard/internal/state"
)

func testStroke() state.Stroke {
	return state.Stroke{
		Points: []state.Point{
			{X: 1.5, Y: 2.25},
			{X: 0.1 + 0.2, Y: -7, Pressure: 0.5, Time: 1700000000123},
			{X: math.MaxFloat64, Y: math.SmallestNonzeroFloat64},
		},
		Color:  "#ff0000",
		Radius: 2.5,
	}
}

func TestRoundTrip(t *testing.T) {
	stroke := testStroke()
	blob, err := Encode(stroke)
	assert.Equal(t, err, nil)
	assert.Equal(t, strings.HasPrefix(string(blob), Prefix), true)

	decoded, err := Decode(blob)
	assert.Equal(t, err, nil)
	assert.Equal(t, decoded, stroke)
}

// assertSameBits compares every numeric field bit for bit, so -0 and 0 differ.
func assertSameBits(t *testing.T, got, want state.Stroke) {
	t.Helper()
	assert.Equal(t, got.Color, want.Color)
	assert.Equal(t, math.Float64bits(got.Radius), math.Float64bits(want.Radius))
	assert.Equal(t, len(got.Points), len(want.Points))
	for i := range want.Points {
		g, w := got.Points[i], want.Points[i]
		assert.Equal(t, math.Float64bits(g.X), math.Float64bits(w.X))
		assert.Equal(t, math.Float64bits(g.Y), math.Float64bits(w.Y))
		assert.Equal(t, math.Float64bits(g.Pressure), math.Float64bits(w.Pressure))
		assert.Equal(t, g.Time, w.Time)
	}
}

func TestRoundTripBits(t *testing.T) {
	negZero := math.Copysign(0, -1)
	values := []float64{
		0, negZero, 1, -1,
		math.SmallestNonzeroFloat64, -math.SmallestNonzeroFloat64,
		math.Float64frombits(0x000fffffffffffff), // largest subnormal
		math.MaxFloat64, -math.MaxFloat64,
	}
	times := []int64{0, -1, 1, math.MinInt64, math.MaxInt64}

	var points []state.Point
	for i, v := range values {
		points = append(points, state.Point{X: v, Y: -v, Pressure: v, Time: times[i%len(times)]})
	}
	stroke := state.Stroke{Points: points, Color: state.Green, Radius: math.SmallestNonzeroFloat64}

	blob, err := Encode(stroke)
	assert.Equal(t, err, nil)
	decoded, err := Decode(blob)
	assert.Equal(t, err, nil)
	assertSameBits(t, decoded, stroke)
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	finite := func() float64 {
		for {
			v := math.Float64frombits(rng.Uint64())
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return v
			}
		}
	}

	for i := 0; i < 200; i++ {
		points := make([]state.Point, 1+rng.Intn(20))
		for j := range points {
			points[j] = state.Point{X: finite(), Y: finite(), Pressure: finite(), Time: int64(rng.Uint64())}
		}
		stroke := state.Stroke{Points: points, Color: state.Red, Radius: math.Abs(finite())}
		if stroke.Radius == 0 {
			stroke.Radius = 1
		}

		blob, err := Encode(stroke)
		if err != nil {
			t.Fatalf("stroke %d: %s", i, err)
		}
		decoded, err := Decode(blob)
		if err != nil {
			t.Fatalf("stroke %d: %s", i, err)
		}
		assertSameBits(t, decoded, stroke)
	}
}

func TestSinglePoint(t *testing.T) {
	stroke := state.Stroke{Points: []state.Point{{X: 3, Y: 4}}, Color: state.Black, Radius: 1}
	blob, err := Encode(stroke)
	assert.Equal(t, err, nil)
	decoded, err := Decode(blob)
	assert.Equal(t, err, nil)
	assert.Equal(t, decoded, stroke)
}

func TestDeterministic(t *testing.T) {
	a, err := Encode(testStroke())
	assert.Equal(t, err, nil)
	b, err := Encode(testStroke())
	assert.Equal(t, err, nil)
	assert.Equal(t, a, b)
}

func TestEncodeEmpty(t *testing.T) {
	_, err := Encode(state.Stroke{Color: state.Black, Radius: 1})
	var encodeErr *EncodeError
	assert.Equal(t, errors.As(err, &encodeErr), true)
	assert.Equal(t, errors.Is(err, state.ErrEmptyStroke), true)
}

func TestDecodeGarbage(t *testing.T) {
	for _, blob := range []state.EncodedStroke{
		"",
		"xyz",
		"s1.",
		"s1.!!!!",
		"s1." + state.EncodedStroke(encoding.EncodeToString([]byte("not deflate at all"))),
	} {
		_, err := Decode(blob)
		var decodeErr *DecodeError
		assert.Equal(t, errors.As(err, &decodeErr), true)
	}
}

func TestDecodeTruncated(t *testing.T) {
	blob, err := Encode(testStroke())
	assert.Equal(t, err, nil)
	for i := len(Prefix); i < len(blob); i += 3 {
		// must not panic
		_, _ = Decode(blob[:i])
	}
}

func TestDecodeRevalidates(t *testing.T) {
	// a well formed message with no points
	blob := state.EncodedStroke(Prefix + encoding.EncodeToString(deflate(t, marshal(state.Stroke{Color: "#000000", Radius: 1}))))
	_, err := Decode(blob)
	assert.Equal(t, errors.Is(err, state.ErrEmptyStroke), true)
}
