package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestOrder(t *testing.T) {
	m := New()
	var got []int
	for i := 0; i < 1000; i++ {
		i := i
		m.Post(func() {
			got = append(got, i)
		})
	}
	assert.Equal(t, m.Sync(context.Background()), nil)
	assert.Equal(t, len(got), 1000)
	for i, v := range got {
		if i != v {
			t.Fatalf("out of order at %d: %d", i, v)
		}
	}
}

func TestNoConcurrentRuns(t *testing.T) {
	m := New()
	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Post(func() {
					mu.Lock()
					active++
					if active > maxActive {
						maxActive = active
					}
					mu.Unlock()
					time.Sleep(10 * time.Microsecond)
					mu.Lock()
					active--
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, m.Sync(context.Background()), nil)
	assert.Equal(t, maxActive, 1)
}

func TestPostFromInside(t *testing.T) {
	m := New()
	done := make(chan []string, 1)
	var got []string
	m.Post(func() {
		got = append(got, "a")
		m.Post(func() {
			got = append(got, "c")
			done <- got
		})
		got = append(got, "b")
	})
	select {
	case g := <-done:
		assert.Equal(t, g, []string{"a", "b", "c"})
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestClose(t *testing.T) {
	m := New()
	release := make(chan struct{})
	started := make(chan struct{})
	ran := make(chan int, 2)
	m.Post(func() {
		close(started)
		<-release
		ran <- 1
	})
	m.Post(func() {
		ran <- 2
	})
	<-started
	m.Close()
	close(release)

	assert.Equal(t, <-ran, 1)
	select {
	case v := <-ran:
		t.Fatalf("dropped function ran: %d", v)
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, m.Post(func() {}), false)
	assert.Equal(t, m.Sync(context.Background()), ErrClosed)
	assert.Equal(t, m.Closed(), true)
	assert.Equal(t, m.Len(), 0)
}

func TestShutdownWaitsForRunning(t *testing.T) {
	m := New()
	started := make(chan struct{})
	finished := false
	m.Post(func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished = true
	})
	<-started
	m.Shutdown()
	assert.Equal(t, finished, true)
}
