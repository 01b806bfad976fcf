package codec

import (
	"bytes"
	"compress/flate"
	"testing"
)

func deflate(t *testing.T, raw []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(raw)
	w.Close()
	return buf.Bytes()
}
