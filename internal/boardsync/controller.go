package boardsync

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"SharedBoard/internal/codec"
	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/state"
)

type State int

const (
	Idle State = iota
	// a local stroke was published; the next append is taken to be its echo
	AwaitingEcho
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingEcho:
		return "awaiting-echo"
	default:
		return "unknown"
	}
}

type Stats struct {
	Commits          int
	EchoesSuppressed int
	RemoteApplied    int
	DecodeFailures   int
	AppendFailures   int
	Unconfirmed      int
	Clears           int
}

// Controller publishes local strokes and applies remote ones for one board.
//
// A Controller is not safe for concurrent use. Session serializes every call
// onto one goroutine.
type Controller struct {
	board   state.BoardID
	log     remotelog.Log
	surface Surface

	state State
	stats Stats
}

func NewController(board state.BoardID, log remotelog.Log, surface Surface) *Controller {
	return &Controller{
		board:   board,
		log:     log,
		surface: surface,
		state:   Idle,
	}
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Stats() Stats {
	return c.stats
}

// LocalStrokeCommitted encodes stroke and appends it to the log exactly once.
// An invalid stroke returns a *codec.EncodeError and changes nothing. A failed
// append returns a *remotelog.AppendError. The controller goes back to Idle
// only when the log is known not to hold the stroke; an unconfirmed append
// keeps waiting for its echo.
func (c *Controller) LocalStrokeCommitted(ctx context.Context, stroke state.Stroke) error {
	blob, err := codec.Encode(stroke)
	if err != nil {
		glog.Warningf("[sync]%s dropped local stroke: %s", c.board, err)
		return err
	}

	c.stats.Commits++
	c.state = AwaitingEcho
	if err := c.log.Append(ctx, c.board, blob); err != nil {
		var appendErr *remotelog.AppendError
		if !errors.As(err, &appendErr) {
			err = &remotelog.AppendError{Board: c.board, Err: err}
		}
		if remotelog.Unconfirmed(err) {
			c.stats.Unconfirmed++
			glog.Warningf("[sync]%s stroke not confirmed, still waiting for echo: %s", c.board, err)
			return err
		}
		c.state = Idle
		c.stats.AppendFailures++
		glog.Errorf("[sync]%s stroke not saved: %s", c.board, err)
		return err
	}
	glog.V(1).Infof("[sync]%s published stroke of %d points", c.board, len(stroke.Points))
	return nil
}

// RemoteAppend applies one log entry. Undecodable blobs are dropped without
// touching the state. The first append after a local publish is its echo and
// is not drawn again; anything else is merged with the stroke in progress.
func (c *Controller) RemoteAppend(blob state.EncodedStroke) {
	stroke, err := codec.Decode(blob)
	if err != nil {
		c.stats.DecodeFailures++
		glog.Warningf("[sync]%s dropped remote stroke: %s", c.board, err)
		return
	}

	if c.state == AwaitingEcho {
		c.state = Idle
		c.stats.EchoesSuppressed++
		glog.V(2).Infof("[sync]%s echo suppressed", c.board)
		return
	}

	c.merge(stroke)
}

// merge draws a remote stroke without losing the local stroke in progress.
// The remote colour and radius apply to its own points only.
func (c *Controller) merge(stroke state.Stroke) {
	inProgress := state.ClonePoints(c.surface.InProgressPoints())
	c.surface.Render(stroke)
	if 0 < len(inProgress) {
		c.surface.SetInProgressPoints(inProgress)
	}
	c.stats.RemoteApplied++
	glog.V(2).Infof("[sync]%s applied remote stroke, kept %d in-progress points", c.board, len(inProgress))
}

// RemoteClear wipes the surface, including a stroke still being drawn.
func (c *Controller) RemoteClear() {
	c.surface.Clear()
	c.stats.Clears++
	glog.V(1).Infof("[sync]%s cleared by log", c.board)
}

// LocalClearRequested clears the log and then the surface. When the log
// refuses, the surface is left as it is.
func (c *Controller) LocalClearRequested(ctx context.Context) error {
	if err := c.log.Clear(ctx, c.board); err != nil {
		glog.Errorf("[sync]%s clear failed: %s", c.board, err)
		return err
	}
	c.surface.Clear()
	glog.Infof("[sync]%s cleared", c.board)
	return nil
}

// Reset returns to Idle. Called when the session ends.
func (c *Controller) Reset() {
	c.state = Idle
}
