package remotelog

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"SharedBoard/internal/state"
)

// Hub is a Log backed by a Store. Each board has a Fanout loaded from the
// store on first use; store writes and fanout publishes happen under the
// board lock so they share one order.
type Hub struct {
	store Store

	mu     sync.Mutex
	boards map[state.BoardID]*hubBoard
	closed bool
}

type hubBoard struct {
	mu     sync.Mutex
	fanout *Fanout
}

func NewHub(store Store) *Hub {
	return &Hub{
		store:  store,
		boards: map[state.BoardID]*hubBoard{},
	}
}

func (h *Hub) board(ctx context.Context, board state.BoardID) (*hubBoard, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if b, ok := h.boards[board]; ok {
		return b, nil
	}
	entries, err := h.store.Entries(ctx, board)
	if err != nil {
		return nil, err
	}
	b := &hubBoard{fanout: NewFanout(board, entries)}
	h.boards[board] = b
	glog.Infof("[hub]loaded board %s with %d strokes", board, len(entries))
	return b, nil
}

func (h *Hub) Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) error {
	b, err := h.board(ctx, board)
	if err != nil {
		return &AppendError{Board: board, Err: err, Rejected: true}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, err := h.store.Append(ctx, board, stroke)
	if err != nil {
		glog.Errorf("[hub]append to %s failed: %s", board, err)
		return &AppendError{Board: board, Err: err, Rejected: true}
	}
	b.fanout.Publish(entry)
	return nil
}

func (h *Hub) OnAppend(board state.BoardID, fn func(state.EncodedStroke)) (Subscription, error) {
	b, err := h.board(context.Background(), board)
	if err != nil {
		return nil, err
	}
	return b.fanout.SubscribeAppend(fn)
}

// OnEntry is OnAppend with entry ids.
func (h *Hub) OnEntry(board state.BoardID, fn func(Entry)) (Subscription, error) {
	b, err := h.board(context.Background(), board)
	if err != nil {
		return nil, err
	}
	return b.fanout.SubscribeEntries(fn)
}

func (h *Hub) OnReplayed(board state.BoardID, fn func()) error {
	b, err := h.board(context.Background(), board)
	if err != nil {
		return err
	}
	b.fanout.AfterQueued(fn)
	return nil
}

func (h *Hub) OnClear(board state.BoardID, fn func()) (Subscription, error) {
	b, err := h.board(context.Background(), board)
	if err != nil {
		return nil, err
	}
	return b.fanout.SubscribeClear(fn)
}

func (h *Hub) Clear(ctx context.Context, board state.BoardID) error {
	b, err := h.board(ctx, board)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := h.store.Clear(ctx, board); err != nil {
		glog.Errorf("[hub]clear of %s failed: %s", board, err)
		return err
	}
	b.fanout.Reset(true)
	glog.Infof("[hub]cleared board %s", board)
	return nil
}

// Entries lists the board in log order.
func (h *Hub) Entries(ctx context.Context, board state.BoardID) ([]Entry, error) {
	b, err := h.board(ctx, board)
	if err != nil {
		return nil, err
	}
	return b.fanout.Entries(), nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, b := range h.boards {
		b.fanout.Close()
	}
	h.boards = nil
	return h.store.Close()
}
