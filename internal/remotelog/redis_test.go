package remotelog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/oklog/ulid/v2"

	"SharedBoard/internal/state"
)

func testRedis(t *testing.T) *RedisLog {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := DialRedis(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	r.block = 100 * time.Millisecond
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedisLog(t *testing.T) {
	log := testRedis(t)
	ctx := context.Background()
	board := state.BoardID("test-" + ulid.Make().String())
	defer log.client.Del(ctx, streamKey(board))

	assert.Equal(t, log.Append(ctx, board, "s1"), nil)

	r := newRecorder()
	_, err := log.OnAppend(board, r.onAppend)
	assert.Equal(t, err, nil)
	_, err = log.OnClear(board, r.onClear)
	assert.Equal(t, err, nil)
	r.waitFor(t, 1)

	assert.Equal(t, log.Append(ctx, board, "s2"), nil)
	assert.Equal(t, log.Clear(ctx, board), nil)
	assert.Equal(t, log.Append(ctx, board, "s3"), nil)

	assert.Equal(t, r.waitFor(t, 4), []string{"a:s1", "a:s2", "clear", "a:s3"})

	entries, err := log.Entries(ctx, board)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].Stroke, state.EncodedStroke("s3"))
}

func TestRedisReplayedAfterHistory(t *testing.T) {
	log := testRedis(t)
	ctx := context.Background()
	board := state.BoardID("test-" + ulid.Make().String())
	defer log.client.Del(ctx, streamKey(board))

	for i := 0; i < 3; i++ {
		assert.Equal(t, log.Append(ctx, board, blob(i)), nil)
	}
	r := newRecorder()
	_, err := log.OnAppend(board, r.onAppend)
	assert.Equal(t, err, nil)
	assert.Equal(t, log.OnReplayed(board, func() { r.add("replayed") }), nil)

	assert.Equal(t, r.waitFor(t, 4), []string{"a:s0", "a:s1", "a:s2", "replayed"})
}

func TestRedisHistoryAfterClear(t *testing.T) {
	log := testRedis(t)
	ctx := context.Background()
	board := state.BoardID("test-" + ulid.Make().String())
	defer log.client.Del(ctx, streamKey(board))

	assert.Equal(t, log.Append(ctx, board, "s1"), nil)
	assert.Equal(t, log.Clear(ctx, board), nil)
	assert.Equal(t, log.Append(ctx, board, "s2"), nil)

	// a late subscriber replays only what follows the clear, silently
	r := newRecorder()
	log.OnClear(board, r.onClear)
	log.OnAppend(board, r.onAppend)
	assert.Equal(t, r.waitFor(t, 1), []string{"a:s2"})
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, r.snapshot(), []string{"a:s2"})
}

func TestCompareStreamIDs(t *testing.T) {
	assert.Equal(t, compareStreamIDs("1-0", "1-0"), 0)
	assert.Equal(t, compareStreamIDs("1-1", "1-0"), 1)
	assert.Equal(t, compareStreamIDs("2-0", "10-0"), -1)
}
