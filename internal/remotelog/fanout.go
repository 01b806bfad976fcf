package remotelog

import (
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"SharedBoard/internal/mailbox"
	"SharedBoard/internal/state"
)

// Fanout keeps the ordered entries of one board and delivers them to
// subscribers. All deliveries go through one mailbox, so appends and clears
// reach every subscriber in the order they were published.
//
// Each broadcast captures the subscriber list when it is published. A new
// append subscriber queues its history replay under the same lock, so it sees
// every entry exactly once: either in the replay or in a later broadcast.
type Fanout struct {
	board state.BoardID
	box   *mailbox.Mailbox

	mu         sync.Mutex
	entries    []Entry
	appendSubs []*subscriber
	clearSubs  []*subscriber
	closed     bool
}

func NewFanout(board state.BoardID, entries []Entry) *Fanout {
	return &Fanout{
		board:   board,
		box:     mailbox.New(),
		entries: append([]Entry(nil), entries...),
	}
}

type subscriber struct {
	fanout  *Fanout
	onEntry func(Entry)
	onClear func()
	closed  atomic.Bool
}

func (s *subscriber) Unsubscribe() {
	if s.closed.Swap(true) {
		return
	}
	s.fanout.remove(s)
}

func (f *Fanout) Board() state.BoardID {
	return f.board
}

// Publish records entry and delivers it to current append subscribers.
func (f *Fanout) Publish(entry Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.entries = append(f.entries, entry)
	subs := append([]*subscriber(nil), f.appendSubs...)
	glog.V(2).Infof("[fanout]%s publish %s to %d subscribers", f.board, entry.ID, len(subs))
	f.box.Post(func() {
		for _, s := range subs {
			if !s.closed.Load() {
				s.onEntry(entry)
			}
		}
	})
}

// Reset drops every entry. Clear subscribers are told only when notify is set.
func (f *Fanout) Reset(notify bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.entries = nil
	if !notify {
		return
	}
	subs := append([]*subscriber(nil), f.clearSubs...)
	glog.V(2).Infof("[fanout]%s clear to %d subscribers", f.board, len(subs))
	f.box.Post(func() {
		for _, s := range subs {
			if !s.closed.Load() {
				s.onClear()
			}
		}
	})
}

func (f *Fanout) SubscribeAppend(fn func(state.EncodedStroke)) (Subscription, error) {
	return f.SubscribeEntries(func(entry Entry) {
		fn(entry.Stroke)
	})
}

// SubscribeEntries is SubscribeAppend with entry ids.
func (f *Fanout) SubscribeEntries(fn func(Entry)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	s := &subscriber{fanout: f, onEntry: fn}
	f.appendSubs = append(f.appendSubs, s)
	history := append([]Entry(nil), f.entries...)
	if 0 < len(history) {
		f.box.Post(func() {
			for _, entry := range history {
				if s.closed.Load() {
					return
				}
				s.onEntry(entry)
			}
		})
	}
	return s, nil
}

func (f *Fanout) SubscribeClear(fn func()) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	s := &subscriber{fanout: f, onClear: fn}
	f.clearSubs = append(f.clearSubs, s)
	return s, nil
}

// AfterQueued runs fn once every delivery queued so far has been made. fn is
// dropped if the fanout closes first.
func (f *Fanout) AfterQueued(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.box.Post(fn)
}

// Entries is a snapshot of the current entries in log order.
func (f *Fanout) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entry(nil), f.entries...)
}

func (f *Fanout) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appendSubs) + len(f.clearSubs)
}

// Close drops pending deliveries and refuses new subscribers.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, s := range f.appendSubs {
		s.closed.Store(true)
	}
	for _, s := range f.clearSubs {
		s.closed.Store(true)
	}
	f.appendSubs = nil
	f.clearSubs = nil
	f.box.Close()
}

func (f *Fanout) remove(s *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendSubs = without(f.appendSubs, s)
	f.clearSubs = without(f.clearSubs, s)
}

func without(subs []*subscriber, s *subscriber) []*subscriber {
	for i, other := range subs {
		if other == s {
			out := make([]*subscriber, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}
