package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// postgresSchema uses JSON rather than JSONB so the payload text is kept
// byte for byte.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	seq         BIGSERIAL PRIMARY KEY,
	id          UUID NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	payload     JSON NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_received_at ON events (received_at);
`

// PostgresStore implements Store on a PostgreSQL table.
type PostgresStore struct {
	db    *sql.DB
	owned bool
}

// NewPostgresStore wraps an open database. Call EnsureSchema before use on
// a fresh database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects with dsn, verifies the connection and creates the
// events table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(db)
	s.owned = true
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the events table and its index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, event *Event) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, received_at, payload) VALUES ($1, $2, $3)`,
		event.ID, event.ReceivedAt, string(event.Raw),
	)
	if err != nil {
		return unavailable("insert event", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Scan(ctx context.Context, fields ...string) (Cursor, error) {
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
			var payload []byte
			if err := rows.Scan(&payload); err != nil {
				return nil, false, fmt.Errorf("scan event: %w", err)
			}
			return payload, true, nil
		},
		close: rows.Close,
	}, nil
}

func (s *PostgresStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
