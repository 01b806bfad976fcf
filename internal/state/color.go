package state

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Palette colours offered by the toolbar. White doubles as the eraser.
const (
	Black  = "#000000"
	White  = "#ffffff"
	Red    = "#ff0000"
	Green  = "#00ff00"
	Blue   = "#0000ff"
	Yellow = "#ffff00"
)

var namedColors = map[string]string{
	"black":  Black,
	"white":  White,
	"red":    Red,
	"green":  Green,
	"blue":   Blue,
	"yellow": Yellow,
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa and the palette names.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if named, ok := namedColors[s]; ok {
		s = named
	}
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("bad color length %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// ColorString formats c as #rrggbb, or #rrggbbaa when it is not opaque.
func ColorString(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}
