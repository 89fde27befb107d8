package tally

import (
	"context"
	"fmt"

	"github.com/runnerr0/streamtally/internal/doc"
	"github.com/runnerr0/streamtally/internal/storage"
)

// Dimension names what to count and how to get it out of an event.
type Dimension struct {
	Name string
	// Fields is the projection requested from the store. Empty fetches
	// whole events.
	Fields []string
	// Extract returns the event's values for this dimension: none, one or
	// many. Empty strings are ignored.
	Extract func(doc.Value) []string
}

// Options controls a query.
type Options struct {
	// TopN truncates the entries. Zero keeps all of them.
	TopN int
	Mode Mode
}

// Query scans every stored event and tabulates dim.
func Query(ctx context.Context, sc storage.Scanner, dim Dimension, opts Options) (*Table, error) {
	cur, err := sc.Scan(ctx, dim.Fields...)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dim.Name, err)
	}
	defer cur.Close(ctx)

	c := newCounter()
	for cur.Next(ctx) {
		c.add(dim.Extract(cur.Doc()))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", dim.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := c.table(dim.Name, opts.Mode)
	return t.Top(opts.TopN), nil
}

// Count tabulates values already in memory. Each element of events is the
// list of values extracted from one event.
func Count(events [][]string, opts Options) *Table {
	c := newCounter()
	for _, values := range events {
		c.add(values)
	}
	return c.table("", opts.Mode).Top(opts.TopN)
}

type counter struct {
	index        map[string]int
	entries      []Entry
	scanned      int64
	contributing int64
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

// add records one event. A value repeated within the event counts once.
func (c *counter) add(values []string) {
	c.scanned++
	contributed := false
	var seen map[string]bool
	for _, v := range values {
		if v == "" {
			continue
		}
		if len(values) > 1 {
			if seen == nil {
				seen = make(map[string]bool, len(values))
			}
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		contributed = true

		i, ok := c.index[v]
		if !ok {
			i = len(c.entries)
			c.index[v] = i
			c.entries = append(c.entries, Entry{Label: v})
		}
		c.entries[i].Count++
	}
	if contributed {
		c.contributing++
	}
}

func (c *counter) table(name string, mode Mode) *Table {
	entries := append([]Entry(nil), c.entries...)
	sortEntries(entries)
	return &Table{
		Dimension:    name,
		Entries:      entries,
		Scanned:      c.scanned,
		Contributing: c.contributing,
		Mode:         mode,
	}
}
