// Package tally builds frequency tables over stored events.
package tally

import (
	"fmt"
	"sort"
)

// Mode selects the denominator used for percentages.
type Mode int

const (
	// ContributingOnly divides by the number of events that contributed at
	// least one value.
	ContributingOnly Mode = iota
	// AllScanned divides by every event scanned, contributing or not.
	AllScanned
)

func (m Mode) String() string {
	switch m {
	case ContributingOnly:
		return "contributing"
	case AllScanned:
		return "all"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names printed by String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "contributing", "":
		return ContributingOnly, nil
	case "all":
		return AllScanned, nil
	}
	return ContributingOnly, fmt.Errorf("unknown denominator %q (want contributing or all)", s)
}

// Entry is one row of a Table.
type Entry struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Table is a frequency table. Entries are ordered by descending count;
// equal counts keep the order in which their labels were first seen.
type Table struct {
	Dimension    string  `json:"dimension"`
	Entries      []Entry `json:"entries"`
	Scanned      int64   `json:"scanned"`
	Contributing int64   `json:"contributing"`
	Mode         Mode    `json:"-"`
}

// Denominator is the divisor for Percent under the table's mode.
func (t *Table) Denominator() int64 {
	if t.Mode == AllScanned {
		return t.Scanned
	}
	return t.Contributing
}

// Percent returns entry i's share of the denominator, 0 to 100. It is 0
// for an empty denominator or an out-of-range index.
func (t *Table) Percent(i int) float64 {
	d := t.Denominator()
	if d == 0 || i < 0 || i >= len(t.Entries) {
		return 0
	}
	return 100 * float64(t.Entries[i].Count) / float64(d)
}

func (t *Table) Percentages() []float64 {
	out := make([]float64, len(t.Entries))
	for i := range t.Entries {
		out[i] = t.Percent(i)
	}
	return out
}

// Total is the sum of all counts. For multi-valued dimensions it can
// exceed Contributing.
func (t *Table) Total() int64 {
	var n int64
	for _, e := range t.Entries {
		n += e.Count
	}
	return n
}

// Top returns a copy holding the first n entries. Denominators are kept.
// n <= 0 keeps everything.
func (t *Table) Top(n int) *Table {
	out := *t
	entries := t.Entries
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	out.Entries = append([]Entry(nil), entries...)
	return &out
}

// WithMode returns a copy of t using mode m.
func (t *Table) WithMode(m Mode) *Table {
	out := t.Top(0)
	out.Mode = m
	return out
}

// sortEntries orders by descending count. The sort is stable, so ties keep
// first-seen order.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
}
