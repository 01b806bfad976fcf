package remotelog

import (
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"SharedBoard/internal/state"
)

func TestFanoutReplayThenLive(t *testing.T) {
	f := NewFanout("b", []Entry{{ID: "1", Stroke: "s1"}, {ID: "2", Stroke: "s2"}})
	defer f.Close()

	r := newRecorder()
	_, err := f.SubscribeAppend(r.onAppend)
	assert.Equal(t, err, nil)
	f.Publish(Entry{ID: "3", Stroke: "s3"})

	assert.Equal(t, r.waitFor(t, 3), []string{"a:s1", "a:s2", "a:s3"})
}

func TestFanoutEntriesKeepIDs(t *testing.T) {
	f := NewFanout("b", []Entry{{ID: "1", Stroke: "s1"}})
	defer f.Close()

	r := newRecorder()
	_, err := f.SubscribeEntries(func(entry Entry) {
		r.add(entry.ID + ":" + string(entry.Stroke))
	})
	assert.Equal(t, err, nil)
	f.Publish(Entry{ID: "2", Stroke: "s2"})

	assert.Equal(t, r.waitFor(t, 2), []string{"1:s1", "2:s2"})
}

func TestFanoutAfterQueued(t *testing.T) {
	f := NewFanout("b", []Entry{{ID: "1", Stroke: "s1"}, {ID: "2", Stroke: "s2"}})

	r := newRecorder()
	f.SubscribeAppend(r.onAppend)
	f.AfterQueued(func() { r.add("done") })
	assert.Equal(t, r.waitFor(t, 3), []string{"a:s1", "a:s2", "done"})

	f.Close()
	f.AfterQueued(func() { r.add("late") })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, len(r.snapshot()), 3)
}

func TestFanoutExactlyOnceUnderConcurrency(t *testing.T) {
	f := NewFanout("b", nil)
	defer f.Close()

	n := 500
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			f.Publish(Entry{Stroke: blob(i)})
		}
	}()

	// subscribe while publishing; each subscriber must see every entry once, in order
	recorders := []*recorder{}
	for i := 0; i < 5; i++ {
		r := newRecorder()
		recorders = append(recorders, r)
		_, err := f.SubscribeAppend(r.onAppend)
		assert.Equal(t, err, nil)
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	for _, r := range recorders {
		events := r.waitFor(t, n)
		time.Sleep(20 * time.Millisecond)
		events = r.snapshot()
		assert.Equal(t, len(events), n)
		for i, e := range events {
			assert.Equal(t, e, "a:"+string(blob(i)))
		}
	}
}

func TestFanoutTotalOrder(t *testing.T) {
	f := NewFanout("b", nil)
	defer f.Close()

	r := newRecorder()
	f.SubscribeAppend(r.onAppend)
	f.SubscribeClear(r.onClear)

	f.Publish(Entry{Stroke: "s1"})
	f.Reset(true)
	f.Publish(Entry{Stroke: "s2"})
	f.Reset(false)
	f.Publish(Entry{Stroke: "s3"})

	assert.Equal(t, r.waitFor(t, 4), []string{"a:s1", "clear", "a:s2", "a:s3"})
	assert.Equal(t, f.Entries(), []Entry{{Stroke: "s3"}})
}

func TestFanoutUnsubscribeDropsQueued(t *testing.T) {
	f := NewFanout("b", nil)
	defer f.Close()

	release := make(chan struct{})
	blocker := newRecorder()
	f.SubscribeAppend(func(s state.EncodedStroke) {
		<-release
		blocker.onAppend(s)
	})
	r := newRecorder()
	sub, _ := f.SubscribeAppend(r.onAppend)

	f.Publish(Entry{Stroke: "s1"})
	f.Publish(Entry{Stroke: "s2"})
	sub.Unsubscribe()
	close(release)

	blocker.waitFor(t, 2)
	assert.Equal(t, len(r.snapshot()), 0)
	assert.Equal(t, f.SubscriberCount(), 1)

	// idempotent
	sub.Unsubscribe()
}

func TestFanoutClosed(t *testing.T) {
	f := NewFanout("b", nil)
	f.Close()
	_, err := f.SubscribeAppend(func(state.EncodedStroke) {})
	assert.Equal(t, err, ErrClosed)
	_, err = f.SubscribeClear(func() {})
	assert.Equal(t, err, ErrClosed)
}
