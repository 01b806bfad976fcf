// Package mailbox runs posted functions one at a time, in post order.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("mailbox closed")

// Mailbox is an unbounded ordered queue of functions. A goroutine is started
// when work arrives and exits once the queue is empty, so an idle mailbox
// costs nothing. Functions posted to the same mailbox never run concurrently.
type Mailbox struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	closed  bool
	wg      sync.WaitGroup
}

func New() *Mailbox {
	return &Mailbox{}
}

// Post queues fn. It returns false when the mailbox is closed.
func (m *Mailbox) Post(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.queue = append(m.queue, fn)
	if !m.running {
		m.running = true
		m.wg.Add(1)
		go m.run()
	}
	return true
}

func (m *Mailbox) run() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		if m.closed || len(m.queue) == 0 {
			m.running = false
			m.queue = nil
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
	}
}

// Sync waits until everything posted before it has run.
// Calling Sync from a function running on the same mailbox deadlocks.
func (m *Mailbox) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !m.Post(func() { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len is the number of functions waiting to run.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close drops pending functions and rejects future posts. A function that is
// already running finishes.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue = nil
}

// Shutdown closes the mailbox and waits for a running function to return.
// Calling it from the mailbox goroutine deadlocks.
func (m *Mailbox) Shutdown() {
	m.Close()
	m.wg.Wait()
}

func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
