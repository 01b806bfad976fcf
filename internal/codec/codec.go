// Package codec converts strokes to and from the text blobs stored in the
// remote log.
//
// A blob is "s1." followed by the url-safe base64 of a deflated protobuf
// message:
//
//	1 color  bytes
//	2 radius fixed64 (IEEE bits)
//	3 point  repeated message
//	    1 x        fixed64
//	    2 y        fixed64
//	    3 pressure fixed64, omitted when +0
//	    4 time     varint (zigzag), omitted when zero
//
// Float bits are carried verbatim so Decode(Encode(s)) equals s.
package codec

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"SharedBoard/internal/state"
)

const Prefix = "s1."

// blobs larger than this after inflation are rejected
const maxRawSize = 8 << 20

const (
	strokeColor  protowire.Number = 1
	strokeRadius protowire.Number = 2
	strokePoint  protowire.Number = 3

	pointX        protowire.Number = 1
	pointY        protowire.Number = 2
	pointPressure protowire.Number = 3
	pointTime     protowire.Number = 4
)

var encoding = base64.RawURLEncoding

func Encode(stroke state.Stroke) (state.EncodedStroke, error) {
	if err := stroke.Validate(); err != nil {
		return "", &EncodeError{Err: err}
	}

	raw := marshal(stroke)

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", &EncodeError{Err: err}
	}
	if _, err := w.Write(raw); err != nil {
		return "", &EncodeError{Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &EncodeError{Err: err}
	}
	return state.EncodedStroke(Prefix + encoding.EncodeToString(buf.Bytes())), nil
}

func Decode(blob state.EncodedStroke) (state.Stroke, error) {
	s := string(blob)
	if !strings.HasPrefix(s, Prefix) {
		return state.Stroke{}, &DecodeError{Err: errors.New("missing format prefix")}
	}
	compressed, err := encoding.DecodeString(s[len(Prefix):])
	if err != nil {
		return state.Stroke{}, &DecodeError{Err: err}
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	raw, err := io.ReadAll(io.LimitReader(r, maxRawSize+1))
	if err != nil {
		return state.Stroke{}, &DecodeError{Err: err}
	}
	if len(raw) > maxRawSize {
		return state.Stroke{}, &DecodeError{Err: errors.New("stroke too large")}
	}

	stroke, err := unmarshal(raw)
	if err != nil {
		return state.Stroke{}, &DecodeError{Err: err}
	}
	if err := stroke.Validate(); err != nil {
		return state.Stroke{}, &DecodeError{Err: err}
	}
	return stroke, nil
}

func marshal(stroke state.Stroke) []byte {
	var b []byte
	b = protowire.AppendTag(b, strokeColor, protowire.BytesType)
	b = protowire.AppendString(b, stroke.Color)
	b = protowire.AppendTag(b, strokeRadius, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(stroke.Radius))

	var p []byte
	for _, point := range stroke.Points {
		p = p[:0]
		p = protowire.AppendTag(p, pointX, protowire.Fixed64Type)
		p = protowire.AppendFixed64(p, math.Float64bits(point.X))
		p = protowire.AppendTag(p, pointY, protowire.Fixed64Type)
		p = protowire.AppendFixed64(p, math.Float64bits(point.Y))
		if math.Float64bits(point.Pressure) != 0 {
			p = protowire.AppendTag(p, pointPressure, protowire.Fixed64Type)
			p = protowire.AppendFixed64(p, math.Float64bits(point.Pressure))
		}
		if point.Time != 0 {
			p = protowire.AppendTag(p, pointTime, protowire.VarintType)
			p = protowire.AppendVarint(p, protowire.EncodeZigZag(point.Time))
		}
		b = protowire.AppendTag(b, strokePoint, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	}
	return b
}

func unmarshal(b []byte) (state.Stroke, error) {
	var stroke state.Stroke
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return stroke, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == strokeColor && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return stroke, protowire.ParseError(n)
			}
			stroke.Color = v
			b = b[n:]
		case num == strokeRadius && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return stroke, protowire.ParseError(n)
			}
			stroke.Radius = math.Float64frombits(v)
			b = b[n:]
		case num == strokePoint && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return stroke, protowire.ParseError(n)
			}
			point, err := unmarshalPoint(v)
			if err != nil {
				return stroke, fmt.Errorf("point %d: %w", len(stroke.Points), err)
			}
			stroke.Points = append(stroke.Points, point)
			b = b[n:]
		default:
			// unknown fields are skipped
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return stroke, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return stroke, nil
}

func unmarshalPoint(b []byte) (state.Point, error) {
	var point state.Point
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return point, protowire.ParseError(n)
		}
		b = b[n:]

		if typ == protowire.Fixed64Type && pointX <= num && num <= pointPressure {
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return point, protowire.ParseError(n)
			}
			f := math.Float64frombits(v)
			switch num {
			case pointX:
				point.X = f
			case pointY:
				point.Y = f
			case pointPressure:
				point.Pressure = f
			}
			b = b[n:]
			continue
		}
		if num == pointTime && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return point, protowire.ParseError(n)
			}
			point.Time = protowire.DecodeZigZag(v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return point, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return point, nil
}
