package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS saves (
	slot      TEXT PRIMARY KEY,
	game      TEXT NOT NULL,
	saved_at  INTEGER NOT NULL,
	room_name TEXT NOT NULL,
	score     INTEGER NOT NULL,
	turn      INTEGER NOT NULL,
	data      BLOB NOT NULL
)`

// SQLiteStore keeps every slot as a row in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening save database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating save table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put inserts or replaces a slot.
func (s *SQLiteStore) Put(ctx context.Context, e *Envelope) error {
	if err := ValidSlot(e.Slot); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO saves (slot, game, saved_at, room_name, score, turn, data)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET
	game = excluded.game,
	saved_at = excluded.saved_at,
	room_name = excluded.room_name,
	score = excluded.score,
	turn = excluded.turn,
	data = excluded.data`,
		e.Slot, e.Game, e.SavedAt.UnixNano(), e.RoomName, e.Score, e.Turn, data)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", e.Slot, err)
	}
	return nil
}

// Get reads a slot.
func (s *SQLiteStore) Get(ctx context.Context, slot string) (*Envelope, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saves WHERE slot = ?`, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return Decode(data)
}

// List returns slot summaries, newest first, without decoding snapshots.
func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT slot, game, saved_at, room_name, score, turn
FROM saves
ORDER BY saved_at DESC, slot`)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Info
	for rows.Next() {
		var (
			info  Info
			nanos int64
		)
		if err := rows.Scan(&info.Slot, &info.Game, &nanos, &info.RoomName, &info.Score, &info.Turn); err != nil {
			return nil, fmt.Errorf("listing saves: %w", err)
		}
		info.SavedAt = time.Unix(0, nanos).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	return out, nil
}

// Delete removes a slot.
func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("deleting slot %s: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
