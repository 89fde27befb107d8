package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/streamtally/internal/doc"
)

// ErrUnavailable wraps every failure to accept an insert.
var ErrUnavailable = errors.New("storage unavailable")

// Event is one ingested post. Raw holds the payload exactly as received;
// Doc is its decoded form.
type Event struct {
	ID         string
	ReceivedAt time.Time
	Raw        []byte
	Doc        doc.Value
}

// NewEvent wraps a decoded payload with a fresh ID and receive time.
func NewEvent(raw []byte, d doc.Value) *Event {
	return &Event{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Raw:        raw,
		Doc:        d,
	}
}

// Sink accepts events. No uniqueness is enforced: inserting the same
// payload twice stores it twice.
type Sink interface {
	Insert(ctx context.Context, event *Event) error
}

// Scanner reads stored events back.
type Scanner interface {
	// Scan returns a cursor over all stored events in insertion order,
	// restricted to the given dotted field paths when any are given. Each
	// call starts again from the first event.
	Scan(ctx context.Context, fields ...string) (Cursor, error)
}

// Store is an append-only event store. Implementations are safe for
// concurrent use; a scan may or may not observe inserts made while it runs.
type Store interface {
	Sink
	Scanner
	Count(ctx context.Context) (int64, error)
	Purge(ctx context.Context) error
	Close() error
}

// Cursor iterates over the result of a Scan.
type Cursor interface {
	Next(ctx context.Context) bool
	Doc() doc.Value
	Err() error
	Close(ctx context.Context) error
}

// unavailable marks err as an insert failure.
func unavailable(op string, err error) error {
	return &opError{op: op, err: err}
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return ErrUnavailable.Error() + ": " + e.op + ": " + e.err.Error() }

func (e *opError) Unwrap() []error { return []error{ErrUnavailable, e.err} }

// rawCursor decodes stored payloads lazily and applies the projection in
// process. Backends that keep payload text use it.
type rawCursor struct {
	next   func(ctx context.Context) ([]byte, bool, error)
	close  func() error
	fields []string

	cur doc.Value
	err error
}

func (c *rawCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	for {
		raw, ok, err := c.next(ctx)
		if err != nil {
			c.err = err
			return false
		}
		if !ok {
			return false
		}
		d, err := doc.Decode(raw)
		if err != nil {
			// not written by Insert; skip
			continue
		}
		c.cur = d.Project(c.fields...)
		return true
	}
}

func (c *rawCursor) Doc() doc.Value { return c.cur }

func (c *rawCursor) Err() error { return c.err }

func (c *rawCursor) Close(ctx context.Context) error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
