package audiocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS audio (
    key TEXT PRIMARY KEY,
    voice TEXT NOT NULL,
    message TEXT NOT NULL,
    audio BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audio_created ON audio(created_at);
`

// SQLiteStorer is a Storer backed by a SQLite database file.
type SQLiteStorer struct {
	db *sql.DB
}

// NewSQLiteStorer opens (creating if needed) the database at path. Use
// ":memory:" for an in-memory database.
func NewSQLiteStorer(path string) (*SQLiteStorer, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStorer{db: db}, nil
}

func (s *SQLiteStorer) Put(ctx context.Context, entry *Entry) (bool, error) {
	if entry == nil {
		return false, errors.New("cannot store nil entry")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO audio (key, voice, message, audio, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Key, entry.Voice, entry.Message, entry.Audio, entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert audio: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStorer) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, voice, message, audio, created_at FROM audio WHERE key = ?`, key)

	var e Entry
	if err := row.Scan(&e.Key, &e.Voice, &e.Message, &e.Audio, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound{Key: key}
		}
		return nil, fmt.Errorf("get audio: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStorer) Has(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM audio WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has audio: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStorer) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, voice, message, audio, created_at FROM audio ORDER BY created_at, key`)
	if err != nil {
		return nil, fmt.Errorf("list audio: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Voice, &e.Message, &e.Audio, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audio: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorer) Stats(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		total sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), SUM(LENGTH(audio)) FROM audio`).Scan(&stats.Entries, &total)
	if err != nil {
		return Stats{}, fmt.Errorf("audio stats: %w", err)
	}
	stats.Bytes = total.Int64
	return stats, nil
}

// Prune removes entries created before cutoff and returns how many were
// removed.
func (s *SQLiteStorer) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audio WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audio: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStorer) Close() error {
	return s.db.Close()
}
