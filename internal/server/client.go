package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"SharedBoard/internal/mailbox"
	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/state"
)

var ErrDisconnected = errors.New("disconnected from board server")

// errServer wraps the message of an error frame.
var errServer = errors.New("server")

const DefaultDialTimeout = 30 * time.Second

// Client is a remotelog.Log backed by a board server. Each board gets one
// websocket, dialed on first use. Entries and clears from the server are fed
// into a Fanout in the order they arrive.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	dialer      *websocket.Dialer
	DialTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	boards map[state.BoardID]*clientBoard
	closed bool
}

// NewClient takes the server address as host:port or an http(s) url.
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		baseURL:     strings.TrimRight(addr, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		dialer:      websocket.DefaultDialer,
		DialTimeout: DefaultDialTimeout,
		ctx:         ctx,
		cancel:      cancel,
		boards:      map[state.BoardID]*clientBoard{},
	}
}

func (c *Client) boardURL(board state.BoardID, suffix string) string {
	return c.baseURL + "/boards/" + url.PathEscape(string(board)) + suffix
}

func (c *Client) wsURL(board state.BoardID) string {
	u := c.boardURL(board, "/ws")
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *Client) board(board state.BoardID) (*clientBoard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, remotelog.ErrClosed
	}
	if b, ok := c.boards[board]; ok {
		return b, nil
	}
	b := &clientBoard{
		board:    board,
		fanout:   remotelog.NewFanout(board, nil),
		out:      mailbox.New(),
		ready:    make(chan struct{}),
		replayed: make(chan struct{}),
		pending:  map[uint64]chan error{},
	}
	c.boards[board] = b
	go b.connect(c)
	return b, nil
}

func (c *Client) Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) error {
	b, err := c.board(board)
	if err != nil {
		return &remotelog.AppendError{Board: board, Err: err}
	}
	if err := b.request(ctx, Frame{Type: FrameAppend, Stroke: stroke}); err != nil {
		return &remotelog.AppendError{Board: board, Err: err, Rejected: !errors.Is(err, remotelog.ErrUnconfirmed)}
	}
	return nil
}

func (c *Client) Clear(ctx context.Context, board state.BoardID) error {
	b, err := c.board(board)
	if err != nil {
		return err
	}
	return b.request(ctx, Frame{Type: FrameClear})
}

func (c *Client) OnAppend(board state.BoardID, fn func(state.EncodedStroke)) (remotelog.Subscription, error) {
	b, err := c.board(board)
	if err != nil {
		return nil, err
	}
	return b.fanout.SubscribeAppend(fn)
}

// OnEntry is OnAppend with the ids the server assigned.
func (c *Client) OnEntry(board state.BoardID, fn func(remotelog.Entry)) (remotelog.Subscription, error) {
	b, err := c.board(board)
	if err != nil {
		return nil, err
	}
	return b.fanout.SubscribeEntries(fn)
}

// OnReplayed runs fn once the server has sent the board history, or the
// connection is lost before it does.
func (c *Client) OnReplayed(board state.BoardID, fn func()) error {
	b, err := c.board(board)
	if err != nil {
		return err
	}
	go func() {
		<-b.replayed
		b.fanout.AfterQueued(fn)
	}()
	return nil
}

func (c *Client) OnClear(board state.BoardID, fn func()) (remotelog.Subscription, error) {
	b, err := c.board(board)
	if err != nil {
		return nil, err
	}
	return b.fanout.SubscribeClear(fn)
}

// Entries reads the board listing over HTTP.
func (c *Client) Entries(ctx context.Context, board state.BoardID) ([]remotelog.Entry, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.boardURL(board, "/strokes"), nil)
	if err != nil {
		return nil, err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to list board %s: %w", board, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list board %s: %s", board, response.Status)
	}
	var entries []remotelog.Entry
	if err := json.NewDecoder(response.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("bad listing for board %s: %w", board, err)
	}
	return entries, nil
}

// FetchStrokes lists the board and decodes every stroke that decodes.
func (c *Client) FetchStrokes(ctx context.Context, board state.BoardID) ([]state.Stroke, error) {
	entries, err := c.Entries(ctx, board)
	if err != nil {
		return nil, err
	}
	return DecodeEntries(entries), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	boards := c.boards
	c.boards = nil
	c.mu.Unlock()

	c.cancel()
	for _, b := range boards {
		b.close()
	}
	return nil
}

type clientBoard struct {
	board    state.BoardID
	fanout   *remotelog.Fanout
	out      *mailbox.Mailbox
	ready    chan struct{}
	replayed chan struct{}
	once     sync.Once

	mu      sync.Mutex
	conn    *websocket.Conn
	err     error
	nextRef uint64
	pending map[uint64]chan error
}

func (b *clientBoard) connect(c *Client) {
	defer close(b.ready)

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = c.DialTimeout
	target := c.wsURL(b.board)

	var conn *websocket.Conn
	err := backoff.RetryNotify(
		func() error {
			var err error
			conn, _, err = c.dialer.DialContext(c.ctx, target, nil)
			return err
		},
		backoff.WithContext(retry, c.ctx),
		func(err error, d time.Duration) {
			glog.Warningf("[client]dial %s failed, retrying in %s: %s", target, d, err)
		},
	)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		glog.Errorf("[client]could not connect to %s: %s", target, err)
		if b.err == nil {
			b.err = fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		b.markReplayed()
		return
	}
	if b.err != nil {
		// closed while dialing
		conn.Close()
		return
	}
	b.conn = conn
	glog.Infof("[client]connected to %s", target)
	go b.read(conn)
}

func (b *clientBoard) read(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			b.fail(fmt.Errorf("%w: %v", ErrDisconnected, err))
			return
		}
		switch frame.Type {
		case FrameHello:
			glog.V(1).Infof("[client]%s server site %s", b.board, frame.Site)
		case FrameEntry:
			b.fanout.Publish(remotelog.Entry{ID: frame.ID, Stroke: frame.Stroke})
		case FrameReplayed:
			b.markReplayed()
		case FrameCleared:
			b.fanout.Reset(true)
		case FrameAck:
			b.resolve(frame.Ref, nil)
		case FrameError:
			b.resolve(frame.Ref, fmt.Errorf("%w: %s", errServer, frame.Error))
		default:
			glog.Warningf("[client]%s unexpected frame %q", b.board, frame.Type)
		}
	}
}

// request sends frame and waits for its ack. Once the frame is handed to the
// connection, a deadline or a dropped connection is reported as
// remotelog.ErrUnconfirmed: the server may have applied it.
func (b *clientBoard) request(ctx context.Context, frame Frame) error {
	select {
	case <-b.ready:
	case <-ctx.Done():
		return fmt.Errorf("not connected: %v", ctx.Err())
	}

	b.mu.Lock()
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return err
	}
	b.nextRef++
	frame.Ref = b.nextRef
	reply := make(chan error, 1)
	b.pending[frame.Ref] = reply
	conn := b.conn
	b.mu.Unlock()

	b.out.Post(func() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			b.fail(fmt.Errorf("%w: %v", ErrDisconnected, err))
		}
	})

	select {
	case err := <-reply:
		if err != nil && !errors.Is(err, errServer) {
			return fmt.Errorf("%w: %w", remotelog.ErrUnconfirmed, err)
		}
		return err
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, frame.Ref)
		b.mu.Unlock()
		return fmt.Errorf("%w: %w", remotelog.ErrUnconfirmed, ctx.Err())
	}
}

func (b *clientBoard) resolve(ref uint64, err error) {
	b.mu.Lock()
	reply, ok := b.pending[ref]
	delete(b.pending, ref)
	b.mu.Unlock()
	if ok {
		reply <- err
	}
}

func (b *clientBoard) markReplayed() {
	b.once.Do(func() {
		close(b.replayed)
	})
}

// fail marks the board disconnected and fails every pending request.
func (b *clientBoard) fail(err error) {
	defer b.markReplayed()
	b.mu.Lock()
	if b.err != nil {
		b.mu.Unlock()
		return
	}
	b.err = err
	pending := b.pending
	b.pending = map[uint64]chan error{}
	conn := b.conn
	b.mu.Unlock()

	glog.Warningf("[client]%s: %s", b.board, err)
	if conn != nil {
		conn.Close()
	}
	for _, reply := range pending {
		reply <- err
	}
}

func (b *clientBoard) close() {
	b.fail(remotelog.ErrClosed)
	b.out.Shutdown()
	b.fanout.Close()
}
