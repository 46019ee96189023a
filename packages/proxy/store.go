package proxy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT    NOT NULL,
	method        TEXT    NOT NULL,
	url           TEXT    NOT NULL,
	host          TEXT    NOT NULL,
	user          TEXT    NOT NULL DEFAULT '',
	authenticated INTEGER NOT NULL,
	status_code   INTEGER NOT NULL,
	duration_ns   INTEGER NOT NULL
)`

// Store persists recordings in a SQLite database
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// OpenStore opens (and creates if needed) the database at path. path may
// carry a sqlite:// or sqlite: prefix.
func OpenStore(path string) (*Store, error) {
	dsn := strings.TrimSpace(path)
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite:")
	if dsn == "" {
		return nil, fmt.Errorf("empty database path")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite3 allows one writer at a time
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save appends one recording
func (s *Store) Save(ctx context.Context, rec Recording) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (timestamp, method, url, host, user, authenticated, status_code, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Method, rec.URL, rec.Host, rec.User, rec.Authenticated, rec.StatusCode, int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

// List returns recordings oldest first. limit <= 0 returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Recording, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT timestamp, method, url, host, user, authenticated, status_code, duration_ns
		FROM recordings ORDER BY id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	recordings := make([]Recording, 0)
	for rows.Next() {
		var (
			rec      Recording
			ts       string
			duration int64
		)
		if err := rows.Scan(&ts, &rec.Method, &rec.URL, &rec.Host, &rec.User, &rec.Authenticated, &rec.StatusCode, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", ts, err)
		}
		rec.Duration = time.Duration(duration)
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return recordings, nil
}

// Count returns the number of stored recordings
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recordings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}
