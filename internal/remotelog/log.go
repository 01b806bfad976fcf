// Package remotelog is the shared, ordered, append-only stroke log that
// clients of one board synchronize through.
package remotelog

import (
	"context"
	"errors"
	"fmt"

	"SharedBoard/internal/state"
)

var ErrClosed = errors.New("remote log closed")

// ErrUnconfirmed marks an append that was sent but never acknowledged. The
// stroke may or may not be in the log.
var ErrUnconfirmed = errors.New("append not confirmed")

// Log is the contract the sync controller depends on.
//
// OnAppend first replays every existing entry in log order, then delivers
// every new entry in append order, each exactly once. Appends and clears of
// one board reach every subscriber in one total order. Callbacks never run on
// the caller's goroutine and must not block.
type Log interface {
	Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) error
	OnAppend(board state.BoardID, fn func(state.EncodedStroke)) (Subscription, error)
	OnClear(board state.BoardID, fn func()) (Subscription, error)
	Clear(ctx context.Context, board state.BoardID) error
}

// Replayer is implemented by logs that can say when the history of a board
// has been handed to the OnAppend subscribers registered so far. fn runs
// after the last replayed entry was delivered to them.
type Replayer interface {
	OnReplayed(board state.BoardID, fn func()) error
}

// Subscription stops delivery when Unsubscribe is called. Events already
// queued for the subscriber are dropped.
type Subscription interface {
	Unsubscribe()
}

// Entry is one stored stroke. IDs sort in log order within a board.
type Entry struct {
	ID     string              `json:"id"`
	Stroke state.EncodedStroke `json:"stroke"`
}

// AppendError reports that a stroke did not make it into the log, or that
// the log could not say whether it did. Rejected is set when the log is known
// not to hold the stroke.
type AppendError struct {
	Board    state.BoardID
	Err      error
	Rejected bool
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("append to board %s: %v", e.Board, e.Err)
}

func (e *AppendError) Unwrap() error {
	return e.Err
}

// Unconfirmed reports whether a failed append may still have been stored, so
// its echo can still arrive. Deadlines and cancellations count unless the log
// marked the append as rejected.
func Unconfirmed(err error) bool {
	if err == nil {
		return false
	}
	var appendErr *AppendError
	if errors.As(err, &appendErr) && appendErr.Rejected {
		return false
	}
	return errors.Is(err, ErrUnconfirmed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
