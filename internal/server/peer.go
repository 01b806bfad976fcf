package server

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"SharedBoard/internal/mailbox"
	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/state"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 4 << 20
)

// peer is one websocket connection to one board. Frames to the connection are
// written in order through the peer's mailbox, so a slow peer never holds up
// the board.
type peer struct {
	conn  *websocket.Conn
	board state.BoardID
	log   BoardLog
	out   *mailbox.Mailbox
}

func newPeer(conn *websocket.Conn, board state.BoardID, log BoardLog) *peer {
	return &peer{
		conn:  conn,
		board: board,
		log:   log,
		out:   mailbox.New(),
	}
}

func (p *peer) send(frame Frame) {
	p.out.Post(func() {
		p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteJSON(frame); err != nil {
			glog.V(1).Infof("[peer]%s write failed: %s", p.board, err)
			p.out.Close()
			p.conn.Close()
		}
	})
}

func (p *peer) run(ctx context.Context) {
	defer func() {
		p.out.Shutdown()
		p.conn.Close()
	}()

	p.send(Frame{Type: FrameHello, Site: state.SiteID()})

	appendSub, err := p.log.OnEntry(p.board, func(entry remotelog.Entry) {
		p.send(Frame{Type: FrameEntry, ID: entry.ID, Stroke: entry.Stroke})
	})
	if err != nil {
		glog.Errorf("[peer]%s subscribe failed: %s", p.board, err)
		return
	}
	defer appendSub.Unsubscribe()
	clearSub, err := p.log.OnClear(p.board, func() {
		p.send(Frame{Type: FrameCleared})
	})
	if err != nil {
		glog.Errorf("[peer]%s subscribe failed: %s", p.board, err)
		return
	}
	defer clearSub.Unsubscribe()
	if err := p.log.OnReplayed(p.board, func() {
		p.send(Frame{Type: FrameReplayed})
	}); err != nil {
		glog.Errorf("[peer]%s subscribe failed: %s", p.board, err)
		return
	}

	glog.Infof("[peer]%s connected from %s", p.board, p.conn.RemoteAddr())
	defer glog.Infof("[peer]%s disconnected from %s", p.board, p.conn.RemoteAddr())

	p.conn.SetReadLimit(maxFrame)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go p.ping(done)

	for {
		var frame Frame
		if err := p.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glog.Warningf("[peer]%s read failed: %s", p.board, err)
			}
			return
		}
		p.handle(ctx, frame)
	}
}

func (p *peer) handle(ctx context.Context, frame Frame) {
	switch frame.Type {
	case FrameAppend:
		if err := p.log.Append(ctx, p.board, frame.Stroke); err != nil {
			p.send(Frame{Type: FrameError, Ref: frame.Ref, Error: err.Error()})
			return
		}
		p.send(Frame{Type: FrameAck, Ref: frame.Ref})
	case FrameClear:
		if err := p.log.Clear(ctx, p.board); err != nil {
			p.send(Frame{Type: FrameError, Ref: frame.Ref, Error: err.Error()})
			return
		}
		p.send(Frame{Type: FrameAck, Ref: frame.Ref})
	default:
		glog.Warningf("[peer]%s unexpected frame %q", p.board, frame.Type)
		p.send(Frame{Type: FrameError, Ref: frame.Ref, Error: "unexpected frame " + string(frame.Type)})
	}
}

func (p *peer) ping(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.out.Post(func() {
				p.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					p.conn.Close()
				}
			})
		case <-done:
			return
		}
	}
}
