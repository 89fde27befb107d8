package storage

import (
	"context"
	"sync"

	"github.com/runnerr0/streamtally/internal/doc"
)

// MemoryStore keeps events in process. It backs tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return unavailable("insert", err)
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

// Scan iterates over the events stored when it is called.
func (s *MemoryStore) Scan(ctx context.Context, fields ...string) (Cursor, error) {
	s.mu.RLock()
	snapshot := s.events[:len(s.events):len(s.events)]
	s.mu.RUnlock()

	return &memoryCursor{events: snapshot, fields: fields, pos: -1}, nil
}

func (s *MemoryStore) Purge(ctx context.Context) error {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryCursor struct {
	events []*Event
	fields []string
	pos    int
	err    error
}

func (c *memoryCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	c.pos++
	return c.pos < len(c.events)
}

func (c *memoryCursor) Doc() doc.Value {
	if c.pos < 0 || c.pos >= len(c.events) {
		return doc.Null()
	}
	return c.events[c.pos].Doc.Project(c.fields...)
}

func (c *memoryCursor) Err() error { return c.err }

func (c *memoryCursor) Close(ctx context.Context) error { return nil }
