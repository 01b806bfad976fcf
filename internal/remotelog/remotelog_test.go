package remotelog

import (
	"flag"
	"fmt"
	"sync"
	"testing"
	"time"

	"SharedBoard/internal/state"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

// recorder collects appends and clears in delivery order, e.g. "a:s1" and "clear".
type recorder struct {
	mu     sync.Mutex
	events []string
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 1024)}
}

func (r *recorder) onAppend(stroke state.EncodedStroke) {
	r.add("a:" + string(stroke))
}

func (r *recorder) onClear() {
	r.add("clear")
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// waitFor blocks until n events were seen and returns them.
func (r *recorder) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if events := r.snapshot(); n <= len(events) {
			return events
		}
		select {
		case <-r.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, have %v", n, r.snapshot())
		}
	}
}

func blob(i int) state.EncodedStroke {
	return state.EncodedStroke(fmt.Sprintf("s%d", i))
}
