package remotelog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"

	"SharedBoard/internal/state"
)

const (
	strokeField = "stroke"
	clearField  = "clear"
)

// RedisLog is a Log over Redis Streams, one stream per board.
//
// Append is XADD. Clear trims the stream to nothing and adds a clear marker
// in the same transaction, so stream ids stay monotonic and a clear is
// ordered with the appends around it. One reader goroutine per board tails
// the stream from the start and feeds a Fanout.
type RedisLog struct {
	client *redis.Client
	block  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	boards   map[state.BoardID]*Fanout
	caughtUp map[state.BoardID]chan struct{}
	closed   bool
}

func NewRedisLog(client *redis.Client) *RedisLog {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisLog{
		client: client,
		block:  5 * time.Second,
		ctx:    ctx,
		cancel: cancel,
		boards:   map[state.BoardID]*Fanout{},
		caughtUp: map[state.BoardID]chan struct{}{},
	}
}

// DialRedis connects to addr and checks the server answers.
func DialRedis(ctx context.Context, addr string) (*RedisLog, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	glog.Infof("[redis]connected to %s", addr)
	return NewRedisLog(client), nil
}

func streamKey(board state.BoardID) string {
	return fmt.Sprintf("sharedboard:board:%s:strokes", board)
}

func (r *RedisLog) Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) error {
	_, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(board),
		Values: map[string]interface{}{strokeField: string(stroke)},
	}).Result()
	if err != nil {
		glog.Errorf("[redis]append to %s failed: %s", board, err)
		// a reply error means the server refused the XADD; anything else may
		// have reached the stream
		var replyErr redis.Error
		return &AppendError{Board: board, Err: err, Rejected: errors.As(err, &replyErr)}
	}
	return nil
}

func (r *RedisLog) Clear(ctx context.Context, board state.BoardID) error {
	key := streamKey(board)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XTrimMaxLen(ctx, key, 0)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			Values: map[string]interface{}{clearField: state.SiteID()},
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear board %s: %w", board, err)
	}
	return nil
}

func (r *RedisLog) OnAppend(board state.BoardID, fn func(state.EncodedStroke)) (Subscription, error) {
	f, err := r.fanout(board)
	if err != nil {
		return nil, err
	}
	return f.SubscribeAppend(fn)
}

func (r *RedisLog) OnEntry(board state.BoardID, fn func(Entry)) (Subscription, error) {
	f, err := r.fanout(board)
	if err != nil {
		return nil, err
	}
	return f.SubscribeEntries(fn)
}

// OnReplayed waits for the board reader to reach the tail the stream had
// when it started.
func (r *RedisLog) OnReplayed(board state.BoardID, fn func()) error {
	f, err := r.fanout(board)
	if err != nil {
		return err
	}
	r.mu.Lock()
	caughtUp := r.caughtUp[board]
	r.mu.Unlock()
	go func() {
		select {
		case <-caughtUp:
			f.AfterQueued(fn)
		case <-r.ctx.Done():
		}
	}()
	return nil
}

func (r *RedisLog) OnClear(board state.BoardID, fn func()) (Subscription, error) {
	f, err := r.fanout(board)
	if err != nil {
		return nil, err
	}
	return f.SubscribeClear(fn)
}

// Entries reads the stream directly, skipping clear markers.
func (r *RedisLog) Entries(ctx context.Context, board state.BoardID) ([]Entry, error) {
	msgs, err := r.client.XRange(ctx, streamKey(board), "-", "+").Result()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, msg := range msgs {
		if _, ok := msg.Values[clearField]; ok {
			entries = nil
			continue
		}
		if stroke, ok := msg.Values[strokeField].(string); ok {
			entries = append(entries, Entry{ID: msg.ID, Stroke: state.EncodedStroke(stroke)})
		}
	}
	return entries, nil
}

func (r *RedisLog) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, f := range r.boards {
		f.Close()
	}
	r.boards = nil
	r.caughtUp = nil
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}

func (r *RedisLog) fanout(board state.BoardID) (*Fanout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if f, ok := r.boards[board]; ok {
		return f, nil
	}
	f := NewFanout(board, nil)
	caughtUp := make(chan struct{})
	r.boards[board] = f
	r.caughtUp[board] = caughtUp
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.read(board, f, caughtUp)
	}()
	return f, nil
}

// read tails the stream of board into f. caughtUp is closed once every entry
// that existed at start has been published.
func (r *RedisLog) read(board state.BoardID, f *Fanout, caughtUp chan struct{}) {
	key := streamKey(board)

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0
	wait := func(err error) bool {
		d := retry.NextBackOff()
		glog.Warningf("[redis]read %s failed, retrying in %s: %s", board, d, err)
		select {
		case <-time.After(d):
			return true
		case <-r.ctx.Done():
			return false
		}
	}

	// entries up to the tail at start are history; a clear marker among them
	// only resets the cache
	var tail string
	for {
		msgs, err := r.client.XRevRangeN(r.ctx, key, "+", "-", 1).Result()
		if err == nil {
			if 0 < len(msgs) {
				tail = msgs[0].ID
			}
			break
		}
		if r.ctx.Err() != nil || !wait(err) {
			return
		}
	}
	retry.Reset()
	replaying := tail != ""
	if !replaying {
		close(caughtUp)
	}

	last := "0"
	for {
		streams, err := r.client.XRead(r.ctx, &redis.XReadArgs{
			Streams: []string{key, last},
			Count:   256,
			Block:   r.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if r.ctx.Err() != nil || !wait(err) {
				return
			}
			continue
		}
		retry.Reset()

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				last = msg.ID
				if _, ok := msg.Values[clearField]; ok {
					live := tail == "" || 0 < compareStreamIDs(msg.ID, tail)
					f.Reset(live)
					continue
				}
				stroke, ok := msg.Values[strokeField].(string)
				if !ok {
					glog.Warningf("[redis]%s entry %s has no stroke", board, msg.ID)
					continue
				}
				f.Publish(Entry{ID: msg.ID, Stroke: state.EncodedStroke(stroke)})
			}
		}
		if replaying && 0 <= compareStreamIDs(last, tail) {
			replaying = false
			close(caughtUp)
			glog.V(1).Infof("[redis]%s caught up at %s", board, last)
		}
	}
}

// compareStreamIDs orders "<millis>-<seq>" ids.
func compareStreamIDs(a, b string) int {
	am, as := splitStreamID(a)
	bm, bs := splitStreamID(b)
	switch {
	case am < bm:
		return -1
	case am > bm:
		return 1
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func splitStreamID(id string) (uint64, uint64) {
	ms, seq, _ := strings.Cut(id, "-")
	m, _ := strconv.ParseUint(ms, 10, 64)
	s, _ := strconv.ParseUint(seq, 10, 64)
	return m, s
}
