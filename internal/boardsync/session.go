package boardsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"SharedBoard/internal/mailbox"
	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/state"
)

const DefaultAppendTimeout = 10 * time.Second

// Session binds one board, one log and one surface. Surface events and log
// callbacks are all posted to one mailbox, so the controller only ever runs
// on one goroutine at a time.
type Session struct {
	board      state.BoardID
	log        remotelog.Log
	surface    Surface
	controller *Controller
	box        *mailbox.Mailbox

	AppendTimeout time.Duration

	mu              sync.Mutex
	ctx             context.Context
	cancel          context.CancelFunc
	subs            []remotelog.Subscription
	onAppendFailure func(error)
	started         bool
	closed          bool

	// session goroutine only
	replaying bool
	held      []state.Stroke
}

func NewSession(board state.BoardID, log remotelog.Log, surface Surface) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		board:         board,
		log:           log,
		surface:       surface,
		controller:    NewController(board, log, surface),
		box:           mailbox.New(),
		AppendTimeout: DefaultAppendTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *Session) Board() state.BoardID {
	return s.board
}

// OnAppendFailure sets a listener for strokes that did not reach the log.
// Appends that may still have been stored are not reported. It runs on the
// session goroutine.
func (s *Session) OnAppendFailure(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAppendFailure = fn
}

// Start subscribes to the board. History is replayed onto the surface
// through the same queue as live events. When the log is a
// remotelog.Replayer, strokes committed before the history is in are held
// and published after it, so no history entry is taken for their echo.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return remotelog.ErrClosed
	}
	if s.started {
		return errors.New("session already started")
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)

	appendSub, err := s.log.OnAppend(s.board, func(blob state.EncodedStroke) {
		s.box.Post(func() {
			s.controller.RemoteAppend(blob)
		})
	})
	if err != nil {
		s.cancel()
		return err
	}
	clearSub, err := s.log.OnClear(s.board, func() {
		s.box.Post(s.controller.RemoteClear)
	})
	if err != nil {
		appendSub.Unsubscribe()
		s.cancel()
		return err
	}
	s.subs = []remotelog.Subscription{appendSub, clearSub}

	if replayer, ok := s.log.(remotelog.Replayer); ok {
		s.replaying = true
		err := replayer.OnReplayed(s.board, func() {
			s.box.Post(s.replayed)
		})
		if err != nil {
			appendSub.Unsubscribe()
			clearSub.Unsubscribe()
			s.subs = nil
			s.cancel()
			return err
		}
	}

	s.surface.OnStrokeCommitted(func(stroke state.Stroke) {
		s.box.Post(func() {
			s.commit(stroke)
		})
	})
	s.started = true
	glog.Infof("[session]%s started", s.board)
	return nil
}

func (s *Session) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Session) replayed() {
	s.replaying = false
	held := s.held
	s.held = nil
	glog.V(1).Infof("[session]%s history in, publishing %d held strokes", s.board, len(held))
	for _, stroke := range held {
		s.commit(stroke)
	}
}

func (s *Session) commit(stroke state.Stroke) {
	if s.replaying {
		s.held = append(s.held, stroke)
		return
	}
	ctx, cancel := context.WithTimeout(s.context(), s.AppendTimeout)
	defer cancel()
	err := s.controller.LocalStrokeCommitted(ctx, stroke)
	var appendErr *remotelog.AppendError
	if errors.As(err, &appendErr) && !remotelog.Unconfirmed(err) {
		s.mu.Lock()
		fn := s.onAppendFailure
		s.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	}
}

// Post runs fn on the session goroutine, after everything queued before it.
// Pointer input from a GUI goes through here.
func (s *Session) Post(fn func()) bool {
	return s.box.Post(fn)
}

// RequestClear clears the board for everyone. done, when set, receives the
// result on the session goroutine.
func (s *Session) RequestClear(done func(error)) {
	s.box.Post(func() {
		err := s.controller.LocalClearRequested(s.context())
		if done != nil {
			done(err)
		}
	})
}

// Sync waits for queued events to be handled.
func (s *Session) Sync(ctx context.Context) error {
	return s.box.Sync(ctx)
}

// Stats reads the controller counters on the session goroutine.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	out := make(chan Stats, 1)
	if !s.box.Post(func() { out <- s.controller.Stats() }) {
		return Stats{}, mailbox.ErrClosed
	}
	select {
	case stats := <-out:
		return stats, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Close unsubscribes, drops queued events and resets the controller. It must
// not be called from the session goroutine.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	cancel := s.cancel
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.surface.OnStrokeCommitted(nil)
	cancel()
	s.box.Shutdown()
	s.controller.Reset()
	glog.Infof("[session]%s closed", s.board)
}
