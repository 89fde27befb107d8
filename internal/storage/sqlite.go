package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store backed by a SQLite database. Payloads are
// stored as received; projections are applied while scanning.
type SQLiteStore struct {
	db    *sql.DB
	owned bool

	// Prepared statements
	insertEvent *sql.Stmt
	countEvents *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database. Close does not close db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// OpenSQLite opens (creating if needed) the database file at path, applies
// migrations and returns a store that owns the connection.
func OpenSQLite(ctx context.Context, path, journalMode string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := NewMigrationRunner(db, journalMode).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertEvent, err = s.db.Prepare(`
		INSERT INTO events (id, received_at, payload)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.countEvents, err = s.db.Prepare(`SELECT COUNT(*) FROM events`)
	if err != nil {
		return err
	}

	return nil
}

// Insert appends one event.
func (s *SQLiteStore) Insert(ctx context.Context, event *Event) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	_, err := s.insertEvent.ExecContext(ctx,
		event.ID, event.ReceivedAt.UTC().Format(time.RFC3339Nano), string(event.Raw),
	)
	if err != nil {
		return unavailable("insert event", err)
	}
	return nil
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.countEvents.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Scan streams payloads in insertion order.
func (s *SQLiteStore) Scan(ctx context.Context, fields ...string) (Cursor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	return &rawCursor{
		fields: fields,
		next: func(context.Context) ([]byte, bool, error) {
			if !rows.Next() {
				return nil, false, rows.Err()
			}
			var payload string
			if err := rows.Scan(&payload); err != nil {
				return nil, false, fmt.Errorf("scan event: %w", err)
			}
			return []byte(payload), true, nil
		},
		close: rows.Close,
	}, nil
}

// Purge deletes all events.
func (s *SQLiteStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return nil
}

// Size returns the database size in bytes, from page_count * page_size.
func (s *SQLiteStore) Size(ctx context.Context) int64 {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// Close releases the prepared statements, and the database when the store
// opened it itself.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertEvent, s.countEvents} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if s.owned {
		return s.db.Close()
	}
	return nil
}
