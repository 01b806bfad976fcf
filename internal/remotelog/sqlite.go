package remotelog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"

	"SharedBoard/internal/state"
)

// SQLiteStore keeps board history in a sqlite file so it survives restarts.
// The autoincrement seq column is the log order.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers anyway; one connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS strokes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			board TEXT NOT NULL,
			stroke TEXT NOT NULL
		)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create strokes table: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS strokes_board ON strokes(board, seq)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create strokes index: %w", err)
	}
	glog.Infof("[sqlite]opened %s", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, board state.BoardID, stroke state.EncodedStroke) (Entry, error) {
	entry := Entry{ID: newEntryID(), Stroke: stroke}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO strokes(id, board, stroke) VALUES (?, ?, ?)`,
		entry.ID, string(board), string(stroke),
	); err != nil {
		return Entry{}, fmt.Errorf("failed to insert stroke: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) Entries(ctx context.Context, board state.BoardID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stroke FROM strokes WHERE board = ? ORDER BY seq`,
		string(board),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query strokes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id, stroke string
		if err := rows.Scan(&id, &stroke); err != nil {
			return nil, fmt.Errorf("failed to scan stroke: %w", err)
		}
		entries = append(entries, Entry{ID: id, Stroke: state.EncodedStroke(stroke)})
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context, board state.BoardID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strokes WHERE board = ?`, string(board))
	if err != nil {
		return fmt.Errorf("failed to clear strokes: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		glog.V(1).Infof("[sqlite]cleared %d strokes from %s", n, board)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
