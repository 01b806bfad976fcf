package server

import "SharedBoard/internal/state"

type FrameType string

// Client to server: append, clear. Server to client: hello, entry, replayed,
// cleared, ack, error. replayed follows the last history entry. ack and error
// carry the ref of the request they answer.
const (
	FrameHello    FrameType = "hello"
	FrameAppend   FrameType = "append"
	FrameClear    FrameType = "clear"
	FrameEntry    FrameType = "entry"
	FrameReplayed FrameType = "replayed"
	FrameCleared  FrameType = "cleared"
	FrameAck      FrameType = "ack"
	FrameError    FrameType = "error"
)

type Frame struct {
	Type   FrameType           `json:"type"`
	Ref    uint64              `json:"ref,omitempty"`
	ID     string              `json:"id,omitempty"`
	Stroke state.EncodedStroke `json:"stroke,omitempty"`
	Error  string              `json:"error,omitempty"`
	Site   string              `json:"site,omitempty"`
}
