package remotelog

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"SharedBoard/internal/state"
)

// Store is the authoritative sequence of entries per board.
type Store interface {
	Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) (Entry, error)
	Entries(ctx context.Context, board state.BoardID) ([]Entry, error)
	Clear(ctx context.Context, board state.BoardID) error
	Close() error
}

func newEntryID() string {
	return ulid.Make().String()
}

type MemoryStore struct {
	mu     sync.Mutex
	boards map[state.BoardID][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards: map[state.BoardID][]Entry{},
	}
}

func (m *MemoryStore) Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boards == nil {
		return Entry{}, ErrClosed
	}
	entry := Entry{ID: newEntryID(), Stroke: stroke}
	m.boards[board] = append(m.boards[board], entry)
	return entry, nil
}

func (m *MemoryStore) Entries(ctx context.Context, board state.BoardID) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boards == nil {
		return nil, ErrClosed
	}
	return append([]Entry(nil), m.boards[board]...), nil
}

func (m *MemoryStore) Clear(ctx context.Context, board state.BoardID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boards == nil {
		return ErrClosed
	}
	delete(m.boards, board)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards = nil
	return nil
}
